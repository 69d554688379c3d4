/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */


package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trafficeditor/internal/scene"
)

// collector records request bodies per path.
type collector struct {
	mu     sync.Mutex
	bodies map[string][][]byte
}

func newCollector(t *testing.T) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{bodies: map[string][][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies[r.URL.Path] = append(c.bodies[r.URL.Path], b)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) get(path string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.bodies[path]...)
}

func (c *collector) waitFor(t *testing.T, path string, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.get(path); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d request(s) on %s, got %d", n, path, len(c.get(path)))
	return nil
}

func TestClientBatchesEventsWithSceneProps(t *testing.T) {
	col, srv := newCollector(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: 2 * time.Second})
	defer c.Close()

	items := []scene.Item{
		{ID: "a", Category: scene.CategoryVehicle},
		{ID: "b", Category: scene.CategoryVehicle},
		{ID: "c", Category: scene.CategoryText, TextContent: "secret"},
	}
	c.Event(EventExport, SceneProps(items))
	c.Event(EventRender, map[string]any{"format": "png"})
	c.Flush(context.Background())

	var names []string
	var first Record
	for _, body := range col.get("/events") {
		var b batch
		if err := json.Unmarshal(body, &b); err != nil {
			t.Fatalf("bad batch json: %v", err)
		}
		if bytes.Contains(body, []byte("secret")) {
			t.Fatal("text content leaked into event")
		}
		for _, r := range b.Events {
			if len(names) == 0 {
				first = r
			}
			names = append(names, r.Name)
		}
	}
	if len(names) != 2 || names[0] != EventExport || names[1] != EventRender {
		t.Fatalf("events = %v", names)
	}
	if first.Props["items"] != float64(3) || first.Props["n_vehicle"] != float64(2) || first.Props["n_text"] != float64(1) {
		t.Fatalf("scene props = %v", first.Props)
	}
	if first.TS.IsZero() || first.Instance == "" || first.Version == "" {
		t.Fatalf("record metadata missing: %+v", first)
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	col, srv := newCollector(t)

	off := New(Config{EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer off.Close()
	if off.Enabled() {
		t.Fatal("client without opt-in must be disabled")
	}
	off.Event("ignored", nil)
	off.UploadCrash([]byte("ignored"))

	noURL := New(Config{OptIn: true})
	defer noURL.Close()
	if noURL.Enabled() {
		t.Fatal("client without events URL must be disabled")
	}

	on := New(Config{OptIn: true, EventsURL: srv.URL + "/events"})
	defer on.Close()
	on.Event("", nil)
	on.Flush(nil)

	time.Sleep(50 * time.Millisecond)
	if n := len(col.get("/events")) + len(col.get("/crash")); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestUploadCrash(t *testing.T) {
	col, srv := newCollector(t)
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash"})
	defer c.Close()

	report := []byte("panic: boom")
	c.UploadCrash(report)
	report[0] = 'X'
	got := col.waitFor(t, "/crash", 1)
	if string(got[0]) != "panic: boom" {
		t.Fatalf("crash body = %q", got[0])
	}
}

func TestFullQueueDropsEvents(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 5 * time.Second})
	defer c.Close()
	for i := 0; i < 4*queueSize; i++ {
		c.Event("tick", nil)
	}
	if c.Dropped() == 0 {
		t.Fatal("expected events to be dropped while the sender is blocked")
	}
}

func TestSendFailureDoesNotStall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second, DebugLogging: true})
	defer c.Close()
	c.Event("first", nil)
	c.Flush(context.Background())
	srv.Close()
	c.Event("second", nil)
	c.Flush(context.Background())
	if n := c.pending.Load(); n != 0 {
		t.Fatalf("pending = %d after flush", n)
	}
}

func TestFromEnvAndDefaultClient(t *testing.T) {
	t.Setenv("TE_TELEMETRY_OPT_IN", "yes")
	t.Setenv("TE_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("TE_CRASH_UPLOAD_URL", "")
	t.Setenv("TE_TELEMETRY_TIMEOUT_MS", "250")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("FromEnv = %+v", cfg)
	}
	NewDefault(cfg)
	t.Cleanup(func() { NewDefault(Config{}) })
	if !Enabled() {
		t.Fatal("default client should be enabled")
	}

	t.Setenv("TE_TELEMETRY_TIMEOUT_MS", "soon")
	if got := FromEnv().Timeout; got != defaultTimeout {
		t.Fatalf("invalid timeout should fall back, got %v", got)
	}
}

func TestSceneProps_UnknownCategory(t *testing.T) {
	props := SceneProps([]scene.Item{{Category: "spaceship"}, {Category: scene.CategoryRoad}})
	if props["n_other"] != 1 || props["n_road"] != 1 || props["n_sign"] != 0 {
		t.Fatalf("props = %v", props)
	}
}

func TestConfig_WithConfigOptIn(t *testing.T) {
	if !(Config{}).WithConfigOptIn(true).OptIn {
		t.Fatalf("config opt-in ignored")
	}
	if !(Config{OptIn: true}).WithConfigOptIn(false).OptIn {
		t.Fatalf("env opt-in dropped")
	}
}
