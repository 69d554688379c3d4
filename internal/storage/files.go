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
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CrashSnapshotPrefix names autosave files written by WriteCrashSnapshot.
const CrashSnapshotPrefix = "scene-autosave-"

// WriteFileAtomic writes data to a temp file in the target directory, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteCrashSnapshot stores a scene blob as a timestamped autosave file in dir and returns its path.
func WriteCrashSnapshot(dir string, data []byte, ts time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("crash snapshot dir is required")
	}
	name := CrashSnapshotPrefix + ts.UTC().Format("20060102-150405.000") + ".json"
	path := filepath.Join(dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LatestCrashSnapshot returns the newest autosave in dir.
func LatestCrashSnapshot(dir string) (string, []byte, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("read autosave dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, CrashSnapshotPrefix) && strings.HasSuffix(name, ".json") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", nil, errors.New("no autosave found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := filepath.Join(dir, candidates[len(candidates)-1])
	b, err := os.ReadFile(latest)
	if err != nil {
		return "", nil, fmt.Errorf("read autosave: %w", err)
	}
	return latest, b, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
