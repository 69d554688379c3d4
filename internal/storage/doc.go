/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists the editor's state as opaque blobs in two logical stores:
// "scene" (the item list) and "custom_assets" (user-defined assets).
// The default backend is an embedded SQLite database; PostgreSQL and an in-memory
// map are available for shared setups and tests. Every write to the SQLite and
// PostgreSQL backends is also appended to a bounded revision log that can be listed
// and restored after a bad edit or a crash.
package storage
