/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"trafficeditor/internal/catalog"
	"trafficeditor/internal/config"
	"trafficeditor/internal/crash"
	"trafficeditor/internal/editor"
	applog "trafficeditor/internal/log"
	"trafficeditor/internal/sceneio"
	"trafficeditor/internal/storage"
)

// session is one opened editor: store, asset catalog and scene manager.
type session struct {
	id      string
	ctx     context.Context
	log     *slog.Logger
	store   storage.Store
	catalog *catalog.Catalog
	editor  *editor.Manager
	meta    sceneio.Metadata
	dataDir string
}

func (a *app) storageOptions() (storage.Options, error) {
	driver := a.cfg.Storage.Driver
	if d := strings.TrimSpace(a.opts.Driver); d != "" {
		driver = strings.ToLower(d)
	}
	opts := storage.Options{Driver: driver, DSN: a.dsn, KeepRevisions: a.cfg.Storage.KeepRevisions}
	if driver == "" || driver == "sqlite" {
		path := a.opts.DBPath
		if path == "" {
			p, err := a.cfg.StoragePath()
			if err != nil {
				return opts, err
			}
			path = p
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return opts, fmt.Errorf("create storage dir: %w", err)
		}
		opts.Path = path
	}
	return opts, nil
}

func (a *app) dataDir() string {
	if a.opts.DataDir != "" {
		return a.opts.DataDir
	}
	if p, err := config.ConfigPath(); err == nil {
		return filepath.Join(filepath.Dir(p), "crash")
	}
	return filepath.Join(os.TempDir(), "trafficeditor")
}

func (a *app) exportMeta() sceneio.Metadata {
	return sceneio.Metadata{
		SceneID:     a.cfg.Export.SceneID,
		Description: a.cfg.Export.Description,
		Background:  a.cfg.Export.Background,
	}
}

// openSession opens the configured store, loads the asset catalog and the persisted scene.
func (a *app) openSession(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	ctx = applog.ContextWithSession(ctx, id)
	l := applog.WithComponent("cli")

	so, err := a.storageOptions()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, so)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", so.Driver, err)
	}

	cat := catalog.New(store)
	if err := cat.Load(ctx); err != nil {
		l.WarnContext(ctx, "custom assets unavailable", slog.Any("err", err))
	}
	if dir := a.cfg.Catalog.ExternalDir; dir != "" {
		if _, err := cat.DiscoverExternal(dir); err != nil {
			l.WarnContext(ctx, "external assets unavailable", slog.Any("err", err))
		}
	}

	meta := a.exportMeta()
	mgr := editor.New(store, cat, editor.Options{
		MaxDepth: a.cfg.History.MaxDepth,
		Snap:     editor.SnapMode(a.cfg.SnapMode()),
		GridSize: a.cfg.Canvas.GridSize,
		Export:   meta,
	})
	if err := mgr.Load(ctx); err != nil {
		_ = mgr.Close(ctx)
		_ = store.Close()
		return nil, fmt.Errorf("load scene: %w", err)
	}
	l.DebugContext(ctx, "session opened", slog.String("driver", so.Driver), slog.Int("items", mgr.Len()))
	return &session{id: id, ctx: ctx, log: l, store: store, catalog: cat, editor: mgr, meta: meta, dataDir: a.dataDir()}, nil
}

// close flushes pending scene writes, then closes the store.
func (s *session) close() error {
	err := s.editor.Close(s.ctx)
	if cerr := s.store.Close(); cerr != nil && !errors.Is(cerr, storage.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	return err
}

// withSession runs fn on an opened session. Panics inside fn leave a crash report and
// an autosave of the scene in the data dir.
func (a *app) withSession(ctx context.Context, fn func(s *session) error) (err error) {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	defer crash.Recover(&crash.Target{Dir: s.dataDir, Scene: s.editor.Items})
	return fn(s)
}
