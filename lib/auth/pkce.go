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

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"regexp"

	"github.com/gravitational/trace"
)

// codeChallengeRegexp matches an S256 code challenge: base64url without
// padding, with headroom above the exact 43 character digest length so
// a future plain-method challenge still fits.
var codeChallengeRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{43,128}$`)

// ValidateCodeChallenge checks that the challenge is shaped like a
// base64url encoded SHA-256 digest.
func ValidateCodeChallenge(challenge string) error {
	if !codeChallengeRegexp.MatchString(challenge) {
		return trace.BadParameter("Invalid code_challenge format")
	}
	return nil
}

// ComputeCodeChallenge derives the S256 challenge for a verifier,
// the base64url encoding of its SHA-256 digest, without padding.
func ComputeCodeChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// VerifyCodeChallenge reports whether the verifier hashes to the
// challenge. The comparison is constant time.
func VerifyCodeChallenge(verifier, challenge string) bool {
	computed := ComputeCodeChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
