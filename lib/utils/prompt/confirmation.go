/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package prompt implements CLI prompts to the user.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gravitational/trace"
)

// Confirmation prompts the user for a yes/no confirmation for question.
// The prompt is written to out and the answer is read from in.
// A closed input stream reads as a declined prompt.
//
// question should be a plain sentence without "[yes/no]"-type hints at the end.
func Confirmation(out io.Writer, in io.Reader, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	scan := bufio.NewScanner(in)
	if !scan.Scan() {
		if err := scan.Err(); err != nil {
			return false, trace.WrapWithMessage(err, "failed reading prompt response")
		}
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(scan.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
