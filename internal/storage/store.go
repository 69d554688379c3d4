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
	"errors"
	"fmt"
	"strings"
	"time"
)

// Logical stores and keys.
const (
	StoreScene        = "scene"
	StoreCustomAssets = "custom_assets"

	KeySceneItems   = "scene_items_list"
	KeyCustomAssets = "custom_assets_list"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store closed")

// Store is a key/value blob store partitioned into named logical stores.
// Get reports ok=false when the key was never written.
type Store interface {
	Get(ctx context.Context, store, key string) ([]byte, bool, error)
	Put(ctx context.Context, store, key string, value []byte) error
	Close() error
}

// Revision is one historical value of a key.
type Revision struct {
	ID    int64
	Store string
	Key   string
	TS    time.Time
	Value []byte
}

// RevisionStore is implemented by backends that keep a revision log.
type RevisionStore interface {
	Store
	ListRevisions(ctx context.Context, store, key string, limit int) ([]Revision, error)
	PruneRevisions(ctx context.Context, store, key string, keepLast int) (int64, error)
}

// Options selects and configures a backend for Open.
type Options struct {
	Driver        string // "sqlite" (default), "postgres" or "memory"
	Path          string // sqlite file
	DSN           string // postgres connection string
	KeepRevisions int
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		return OpenSQLite(opts.Path, SQLiteOptions{KeepRevisions: opts.KeepRevisions})
	case "postgres", "pg":
		return OpenPostgres(ctx, opts.DSN, opts.KeepRevisions)
	case "memory", "mem":
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
