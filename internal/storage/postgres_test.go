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
	"os"
	"testing"
	"time"
)

// openPGForTest connects to TE_PG_DSN (or DATABASE_URL) and skips when no server is reachable.
func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("TE_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("TE_PG_DSN not set; skipping postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenPostgres(ctx, dsn, 2)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_RoundTripAndRevisions(t *testing.T) {
	s := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	key := "it-" + time.Now().Format("150405.000000")
	for _, v := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, StoreScene, key, []byte(v)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	v, ok, err := s.Get(ctx, StoreScene, key)
	if err != nil || !ok || string(v) != "c" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	revs, err := s.ListRevisions(ctx, StoreScene, key, 10)
	if err != nil || len(revs) != 2 || string(revs[0].Value) != "c" {
		t.Fatalf("ListRevisions = %+v %v", revs, err)
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("0002_kv_history.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion = %d %v", v, err)
	}
	if _, err := parseVersion("kv.sql"); err == nil {
		t.Fatalf("expected error for unnumbered migration")
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	ents, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(ents) < 2 {
		t.Fatalf("embedded migrations missing: %v", err)
	}
}
