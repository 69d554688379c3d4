/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/storage"
)

// persister writes the latest scene from a single goroutine. Only the newest pending
// snapshot is kept; a write that is still waiting when a newer one arrives is skipped.
type persister struct {
	store   storage.Store
	timeout time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	pending  scene.Scene
	has      bool
	closed   bool
	failures int

	wake chan struct{}
	done chan struct{}
}

func newPersister(store storage.Store, timeout time.Duration, l *slog.Logger) *persister {
	p := &persister{
		store:   store,
		timeout: timeout,
		log:     l,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// schedule replaces the pending snapshot with s. s must not be modified afterwards.
func (p *persister) schedule(s scene.Scene) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending, p.has = s, true
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		_, open := <-p.wake
		p.mu.Lock()
		s, has := p.pending, p.has
		p.pending, p.has = nil, false
		p.mu.Unlock()
		if has {
			p.write(s)
		}
		if !open {
			return
		}
	}
}

func (p *persister) write(s scene.Scene) {
	b, err := scene.Encode(s)
	if err != nil {
		p.fail(err, len(s))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Put(ctx, storage.StoreScene, storage.KeySceneItems, b); err != nil {
		p.fail(err, len(s))
		return
	}
	p.log.Debug("scene saved", slog.Int("items", len(s)), slog.Int("bytes", len(b)))
}

func (p *persister) fail(err error, items int) {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()
	p.log.Error("scene save failed", slog.String("err", err.Error()), slog.Int("items", items))
}

func (p *persister) failureCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// close stops accepting snapshots and waits for the last one to be written.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.wake)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
