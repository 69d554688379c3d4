/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"sync"
)

// MemStore is an in-process Store. Values are copied on the way in and out.
type MemStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   int
	putErr error
	closed bool

	// OnPut, when set, is called after every successful write.
	OnPut func(store, key string, value []byte)
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{data: make(map[string][]byte)} }

func memKey(store, key string) string { return store + "\x00" + key }

func (m *MemStore) Get(_ context.Context, store, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[memKey(store, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemStore) Put(_ context.Context, store, key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.putErr != nil {
		err := m.putErr
		m.mu.Unlock()
		return err
	}
	cp := append([]byte{}, value...)
	m.data[memKey(store, key)] = cp
	m.puts++
	hook := m.OnPut
	m.mu.Unlock()
	if hook != nil {
		hook(store, key, append([]byte(nil), cp...))
	}
	return nil
}

// FailPuts makes subsequent writes fail with err (nil restores normal behavior).
func (m *MemStore) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// Puts returns the number of successful writes.
func (m *MemStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
