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

// language=SQL
// dialect=SQLite
const selectKVSQL = `SELECT value FROM kv WHERE store = ? AND key = ?`

// language=SQL
// dialect=SQLite
const upsertKVSQL = `INSERT INTO kv(store, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(store, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO kv_history(store, key, ts, value) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, ts, value FROM kv_history WHERE store = ? AND key = ? ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM kv_history WHERE store = ? AND key = ? AND id NOT IN (
	SELECT id FROM kv_history WHERE store = ? AND key = ? ORDER BY id DESC LIMIT ?
)`
