/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in sink for anonymous editing metrics and crash
// uploads. It consumes the drawing action log without ever sending content.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"drawtile/internal/config"
	"drawtile/internal/document"
	applog "drawtile/internal/log"
	"drawtile/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - DRW_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - DRW_TELEMETRY_URL: URL batches of events are POSTed to
// - DRW_CRASH_UPLOAD_URL: URL crash reports are POSTed to
// - DRW_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - DRW_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs nothing is sent, even if opt-in is true.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	// BatchSize is the number of events collected before a batch is posted.
	BatchSize int
	// Interval posts a partial batch after this much idle time.
	Interval     time.Duration
	DebugLogging bool
}

const (
	defaultTimeout   = 1500 * time.Millisecond
	defaultBatchSize = 20
	defaultInterval  = 5 * time.Second
	queueSize        = 256
)

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("DRW_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("DRW_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("DRW_CRASH_UPLOAD_URL")),
		DebugLogging: os.Getenv("DRW_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("DRW_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// FromConfig builds a Config from the application config. Crash uploads and
// debug logging still come from the environment.
func FromConfig(tc config.TelemetryConfig) Config {
	cfg := FromEnv()
	cfg.OptIn = tc.OptIn
	cfg.EventsURL = strings.TrimSpace(tc.URL)
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	return c
}

// Event is one anonymous metric. It carries names and counts only.
type Event struct {
	Name   string    `json:"name"`
	Action string    `json:"action,omitempty"`
	Depth  int       `json:"depth"`
	Args   int       `json:"args"`
	At     time.Time `json:"at"`
}

// batch is the wire payload. Session is random per client and unrelated to
// any document id.
type batch struct {
	Session string  `json:"session"`
	Version string  `json:"version"`
	OS      string  `json:"os"`
	Arch    string  `json:"arch"`
	Events  []Event `json:"events"`
}

// Client collects events on a bounded queue and posts them in batches from a
// single goroutine. Recording never blocks; events are dropped when the queue
// is full.
type Client struct {
	cfg     Config
	session string
	log     *slog.Logger
	cli     *http.Client

	q       chan Event
	flush   chan chan error
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		session: uuid.NewString(),
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		q:       make(chan Event, queueSize),
		flush:   make(chan chan error),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Dropped is the number of events lost to a full queue.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Record queues an event if telemetry is enabled.
func (c *Client) Record(e Event) {
	if !c.Enabled() || e.Name == "" {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case c.q <- e:
	default:
		c.dropped.Add(1)
	}
}

// ActionLogger reports every logged action of a drawing as an "action" event.
// Only the action name, the nesting depth of its target and the argument count
// leave the process; ids and values do not.
func (c *Client) ActionLogger() document.ActionLogger {
	return document.ActionLoggerFunc(func(a document.Action) {
		c.Record(Event{
			Name:   "action",
			Action: a.Name,
			Depth:  strings.Count(a.Path, "/objects/"),
			Args:   len(a.Args),
		})
	})
}

// Flush posts everything recorded so far and waits for the request to finish.
func (c *Client) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	ack := make(chan error, 1)
	select {
	case c.flush <- ack:
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close posts pending events and stops the sender.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *Client) loop() {
	defer close(c.stopped)
	var pending []Event
	timer := time.NewTimer(c.cfg.Interval)
	defer timer.Stop()

	drain := func() {
		for {
			select {
			case e := <-c.q:
				pending = append(pending, e)
			default:
				return
			}
		}
	}
	post := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := c.post(pending)
		pending = nil
		return err
	}

	for {
		select {
		case <-c.done:
			drain()
			_ = post()
			return
		case ack := <-c.flush:
			drain()
			ack <- post()
		case e := <-c.q:
			pending = append(pending, e)
			if len(pending) >= c.cfg.BatchSize {
				_ = post()
			}
		case <-timer.C:
			_ = post()
			timer.Reset(c.cfg.Interval)
		}
	}
}

func (c *Client) post(events []Event) error {
	buf, err := json.Marshal(batch{
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Events:  events,
	})
	if err != nil {
		return err
	}
	err = c.send(context.Background(), c.cfg.EventsURL, "application/json", buf)
	if c.cfg.DebugLogging {
		if err != nil {
			c.log.Debug("telemetry batch failed", slog.Int("events", len(events)), slog.Any("err", err))
		} else {
			c.log.Debug("telemetry batch sent", slog.Int("events", len(events)))
		}
	}
	return err
}

// ErrStatus reports a non-2xx reply from a telemetry endpoint.
var ErrStatus = errors.New("telemetry: unexpected status")

func (c *Client) send(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report to the crash URL if opt-in. It blocks until
// the request finishes because the process usually exits right after.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	err := c.send(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
	if err != nil && c.cfg.DebugLogging {
		c.log.Debug("crash upload failed", slog.Any("err", err))
	}
	return err
}
