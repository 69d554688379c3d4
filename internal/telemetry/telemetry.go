/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */


// Package telemetry sends opt-in anonymous editor usage events (scene sizes per
// category, import/export counts) and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// Telemetry is opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
//   - TE_TELEMETRY_OPT_IN: "1", "true", "yes" or "on" to enable events
//   - TE_TELEMETRY_URL: endpoint receiving batches of JSON events
//   - TE_CRASH_UPLOAD_URL: endpoint receiving crash reports
//   - TE_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - TE_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without an events URL, events are dropped even when opted in.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

const (
	defaultTimeout = 1500 * time.Millisecond
	queueSize      = 64
	maxBatch       = 16
	maxFlushWait   = time.Second
)

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("TE_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("TE_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("TE_CRASH_UPLOAD_URL")),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv("TE_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TE_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// WithConfigOptIn enables telemetry when either the environment or the config file opted in.
func (c Config) WithConfigOptIn(optIn bool) Config {
	c.OptIn = c.OptIn || optIn
	return c
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Record is one event as sent on the wire. Props must not carry scene content.
type Record struct {
	Name     string         `json:"name"`
	TS       time.Time      `json:"ts"`
	Version  string         `json:"version"`
	OS       string         `json:"os"`
	Arch     string         `json:"arch"`
	Instance string         `json:"instance"`
	Props    map[string]any `json:"props,omitempty"`
}

type batch struct {
	Events []Record `json:"events"`
}

// Client queues events and posts them in batches from a background goroutine.
// Event never blocks; a full queue drops the event.
type Client struct {
	cfg      Config
	log      *slog.Logger
	http     *http.Client
	instance string

	q       chan Record
	pending atomic.Int64
	dropped atomic.Int64

	once   sync.Once
	closed chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault installs a client configured from the environment unless one exists.
func InitDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
}

// NewDefault replaces the package-level client with one built from cfg.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

func current() *Client {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:      cfg,
		log:      applog.WithComponent("telemetry"),
		http:     &http.Client{Timeout: cfg.Timeout},
		instance: uuid.NewString(),
		q:        make(chan Record, queueSize),
		closed:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are opted in and have somewhere to go.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports the state of the package-level client.
func Enabled() bool { return current().Enabled() }

// Dropped returns the number of events discarded because the queue was full.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Event queues a named event with props.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	r := Record{
		Name:     name,
		TS:       time.Now().UTC(),
		Version:  version.String(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Instance: c.instance,
	}
	if len(props) > 0 {
		r.Props = make(map[string]any, len(props))
		for k, v := range props {
			r.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- r:
	default:
		c.pending.Add(-1)
		c.dropped.Add(1)
	}
}

// Event queues an event on the package-level client.
func Event(name string, props map[string]any) { current().Event(name, props) }

// Flush waits until every queued event was posted, ctx is done or a second passed.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.NewTimer(maxFlushWait)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case r := <-c.q:
			b := batch{Events: []Record{r}}
		drain:
			for len(b.Events) < maxBatch {
				select {
				case next := <-c.q:
					b.Events = append(b.Events, next)
				default:
					break drain
				}
			}
			c.sendBatch(b)
			c.pending.Add(-int64(len(b.Events)))
		}
	}
}

func (c *Client) sendBatch(b batch) {
	body, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.post(c.cfg.EventsURL, "application/json", body); err != nil {
		c.debug("telemetry send failed", slog.Int("events", len(b.Events)), slog.Any("err", err))
		return
	}
	c.debug("telemetry batch sent", slog.Int("events", len(b.Events)))
}

func (c *Client) post(url, contentType string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned %s", resp.Status)
	}
	return nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.cfg.DebugLogging {
		c.log.Debug(msg, args...)
	}
}

// UploadCrash posts a crash report to the crash URL in the background when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go func() {
		if err := c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b); err != nil {
			c.debug("crash upload failed", slog.Any("err", err))
			return
		}
		c.debug("crash report uploaded")
	}()
}

// UploadCrash posts through the package-level client.
func UploadCrash(report []byte) { current().UploadCrash(report) }
