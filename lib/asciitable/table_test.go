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

package asciitable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The writer pads every column, so each line ends with at least one
// trailing space. Explicit literals keep that whitespace visible.
const fullTable = "Login Status \n" +
	"----- ------ \n" +
	"alice active \n" +
	"bob   denied \n"

const headlessTable = "one   two  \n" +
	"three four \n"

func TestFullTable(t *testing.T) {
	t.Parallel()

	table := MakeTable([]string{"Login", "Status"})
	table.AddRow([]string{"alice", "active"})
	table.AddRow([]string{"bob", "denied"})

	require.Equal(t, fullTable, table.AsBuffer().String())
}

func TestHeadlessTable(t *testing.T) {
	t.Parallel()

	table := MakeHeadlessTable(2)
	table.AddRow([]string{"one", "two"})
	table.AddRow([]string{"three", "four"})

	// The table shall have no header and also no separator.
	require.Equal(t, headlessTable, table.AsBuffer().String())
}

func TestTruncatedColumn(t *testing.T) {
	t.Parallel()

	table := MakeTable([]string{"Login"})
	table.AddColumn(Column{Title: "Description", MaxCellLength: 10})
	table.AddRow([]string{"alice", "this line is much too long to print"})

	require.Contains(t, table.AsBuffer().String(), "this line ...")
}

func TestSortRows(t *testing.T) {
	t.Parallel()

	table := MakeTable([]string{"Login", "Status"})
	table.AddRow([]string{"carol", "active"})
	table.AddRow([]string{"alice", "denied"})
	table.AddRow([]string{"bob", "active"})

	table.SortRowsBy([]int{0}, true)

	out := table.AsBuffer().String()
	require.Less(t, strings.Index(out, "alice"), strings.Index(out, "bob"))
	require.Less(t, strings.Index(out, "bob"), strings.Index(out, "carol"))
}
