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

// Package memory implements the storage backend in process memory. It is
// the backend of choice for tests and single node development setups.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/btree"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/gitscape/gitscape/lib/backend"
)

// btreeDegree of 8 is standard across the codebase for in-memory trees.
const btreeDegree = 8

// Config holds memory backend settings.
type Config struct {
	// Clock is the clock used by the backend, a real clock when empty.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Memory is a btree backed implementation of backend.Backend.
type Memory struct {
	Config

	mu   sync.Mutex
	tree *btree.BTreeG[*btreeItem]
}

type btreeItem struct {
	item backend.Item
}

// New creates a memory backend with the supplied configuration.
func New(cfg Config) (*Memory, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Memory{
		Config: cfg,
		tree: btree.NewG(btreeDegree, func(a, b *btreeItem) bool {
			return a.item.Key < b.item.Key
		}),
	}, nil
}

// Get returns the item for the exact key or trace.NotFound.
func (m *Memory) Get(ctx context.Context, key backend.Key) (*backend.Item, error) {
	if key == "" {
		return nil, trace.BadParameter("missing parameter key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	found, ok := m.tree.Get(&btreeItem{item: backend.Item{Key: key}})
	if !ok {
		return nil, trace.NotFound("key %q is not found", key.String())
	}
	item := copyItem(found.item)
	return &item, nil
}

// Put upserts the item into the tree.
func (m *Memory) Put(ctx context.Context, item backend.Item) error {
	if item.Key == "" {
		return trace.BadParameter("missing parameter key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.ReplaceOrInsert(&btreeItem{item: copyItem(item)})
	return nil
}

// List returns the keys under the prefix in lexical order.
func (m *Memory) List(ctx context.Context, prefix backend.Key) ([]backend.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := []backend.Key{}
	pivot := &btreeItem{item: backend.Item{Key: prefix}}
	m.tree.AscendGreaterOrEqual(pivot, func(i *btreeItem) bool {
		if !strings.HasPrefix(i.item.Key.String(), prefix.String()) {
			return false
		}
		keys = append(keys, i.item.Key)
		return true
	})
	return keys, nil
}

// Close clears the tree.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.Clear(false)
	return nil
}

// Clock returns the clock used by this backend.
func (m *Memory) Clock() clockwork.Clock {
	return m.Config.Clock
}

// copyItem detaches the item from caller owned byte slices, so later
// mutation on either side does not leak through.
func copyItem(item backend.Item) backend.Item {
	value := make([]byte, len(item.Value))
	copy(value, item.Value)
	item.Value = value
	return item
}
