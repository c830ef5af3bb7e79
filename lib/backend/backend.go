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

// Package backend provides the storage abstraction layer used by the
// gitscape services. Implementations are plain key value blob stores:
// unconditional reads and writes plus prefix listing, nothing more. Any
// coordination between writers happens above this layer.
package backend

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
)

// Separator joins the components of a key.
const Separator = '/'

// Key identifies an item in the backend. Keys are slash separated paths,
// e.g. "users/alice". Item keys are assumed to be valid UTF8.
type Key string

// NewKey joins the components into a backend key.
func NewKey(components ...string) Key {
	return Key(strings.Join(components, string(Separator)))
}

// ExactKey joins the components and appends a trailing separator. Use it
// as a List prefix to match only items under the path, not every key
// sharing the string prefix.
func ExactKey(components ...string) Key {
	return NewKey(components...) + Key(Separator)
}

// String returns the key in its textual form.
func (k Key) String() string {
	return string(k)
}

// HasPrefix reports whether the key starts with the given prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return strings.HasPrefix(string(k), string(prefix))
}

// TrimPrefix returns the key without the leading prefix and separator.
func (k Key) TrimPrefix(prefix Key) Key {
	trimmed := strings.TrimPrefix(string(k), string(prefix))
	return Key(strings.TrimPrefix(trimmed, string(Separator)))
}

// Item is a single key value pair stored in the backend.
type Item struct {
	// Key is the full key of the item.
	Key Key
	// Value is the opaque payload. Services store JSON here but the
	// backend does not care.
	Value []byte
}

// Backend implements abstraction over local or remote storage backend.
//
// The error contract matters more than the method set: Get returns a
// trace.NotFoundError when and only when the key does not exist, so
// callers can tell absence from backend failure with trace.IsNotFound.
// Writes are unconditional, last writer wins.
type Backend interface {
	// Get returns the item for the exact key.
	Get(ctx context.Context, key Key) (*Item, error)

	// Put upserts the item, overwriting any previous value.
	Put(ctx context.Context, item Item) error

	// List returns the keys under the prefix in lexical order. A prefix
	// with no matches yields an empty slice, not an error.
	List(ctx context.Context, prefix Key) ([]Key, error)

	// Close releases the resources held by the backend.
	Close() error

	// Clock returns the clock used by this backend.
	Clock() clockwork.Clock
}
