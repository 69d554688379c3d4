/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a report file plus an autosave of the open scene.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/storage"
	"trafficeditor/internal/telemetry"
	"trafficeditor/internal/version"
)

// Replaced in tests.
var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Target names what a crash should preserve.
type Target struct {
	// Dir receives crash reports and scene autosaves. Empty means the temp dir.
	Dir string
	// Scene returns the scene to autosave; nil skips the autosave.
	Scene func() scene.Scene
}

// Recover captures a panic, logs an error with stacktrace, writes an error report
// file, and attempts a crash-safe autosave of the scene (if a target is given).
//
// Usage: defer crash.Recover(&crash.Target{Dir: dir, Scene: mgr.Items})
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(t, r, stack)
		if path, err := Autosave(t); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}

		if _, err := fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

// Autosave writes the target scene as a timestamped snapshot and returns its path.
// It returns "" without error when there is nothing to save.
func Autosave(t *Target) (path string, err error) {
	if t == nil || t.Scene == nil {
		return "", nil
	}
	// the scene getter may itself be what panicked
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read scene: %v", r)
		}
	}()
	data, err := scene.Encode(t.Scene())
	if err != nil {
		return "", fmt.Errorf("encode scene: %w", err)
	}
	return storage.WriteCrashSnapshot(reportDir(t), data, time.Now())
}

// Restore loads the newest autosave from dir.
func Restore(dir string) (string, scene.Scene, error) {
	path, b, err := storage.LatestCrashSnapshot(dir)
	if err != nil {
		return "", nil, err
	}
	s, err := scene.Decode(b)
	if err != nil {
		return path, nil, fmt.Errorf("decode autosave %s: %w", filepath.Base(path), err)
	}
	return path, s, nil
}

func reportDir(t *Target) string {
	if t != nil && t.Dir != "" {
		return t.Dir
	}
	return os.TempDir()
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	dir := reportDir(t)
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	fname := fmt.Sprintf("crash-%s.log", stamp)
	path := filepath.Join(dir, fname)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Traffic Editor Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil && t.Dir != "" {
		_, _ = fmt.Fprintf(&buf, "DataDir: %s\n", t.Dir)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
