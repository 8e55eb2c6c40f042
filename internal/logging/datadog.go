package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

// DatadogOptions configures the export core. Only APIKey has no default.
type DatadogOptions struct {
	APIKey   string
	Site     string // e.g. "datadoghq.com"; selects the regional intake endpoint
	Service  string
	Source   string
	Hostname string
	Tags     []string // extra ddtags in "key:value" form
	MinLevel zapcore.Level

	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// IntakeURL overrides the URL derived from Site. Tests point this at a
	// local httptest server.
	IntakeURL string
	// HTTPClient defaults to a client with a short timeout so a slow intake
	// can never back up the worker indefinitely.
	HTTPClient *http.Client
}

// record is the shape Datadog's v2 logs intake accepts, one object per log line.
// The message carries the fully encoded JSON entry; Datadog parses JSON
// messages into attributes on its side.
type record struct {
	DDSource string `json:"ddsource"`
	DDTags   string `json:"ddtags"`
	Hostname string `json:"hostname"`
	Service  string `json:"service"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// DatadogCore is a zapcore.Core that forwards log entries to Datadog's HTTP
// log intake. Write never performs network I/O: entries are encoded, pushed
// onto a bounded queue, and shipped in batches by a single background worker.
//
// Overflow policy is drop-newest: when the queue is full the entry is counted
// and discarded. Request handling must never block on the log backend, and
// under sustained overload the older entries are the ones worth keeping —
// they hold the context from before things went wrong. Drops are reported to
// stderr on the next flush.
//
// With() clones only the encoder; the shipper (queue, worker, counters) is
// shared by all clones through the pointer.
type DatadogCore struct {
	zapcore.LevelEnabler

	enc  zapcore.Encoder
	ship *shipper
}

// shipper owns the queue and the single worker goroutine.
type shipper struct {
	opts   DatadogOptions
	ddtags string
	client *http.Client
	url    string

	queue    chan record
	flushCh  chan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
}

// NewDatadogCore builds the core and starts its worker goroutine.
// Call Stop to flush and terminate the worker.
func NewDatadogCore(opts DatadogOptions) *DatadogCore {
	if opts.Site == "" {
		opts.Site = "datadoghq.com"
	}
	if opts.Source == "" {
		opts.Source = "go"
	}
	if opts.Hostname == "" {
		opts.Hostname, _ = os.Hostname()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}

	url := opts.IntakeURL
	if url == "" {
		url = fmt.Sprintf("https://http-intake.logs.%s/api/v2/logs", opts.Site)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	// Entries are encoded to plain JSON; the console core owns pretty output.
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	s := &shipper{
		opts:    opts,
		ddtags:  strings.Join(opts.Tags, ","),
		client:  client,
		url:     url,
		queue:   make(chan record, opts.QueueSize),
		flushCh: make(chan chan struct{}),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.worker()

	return &DatadogCore{
		LevelEnabler: opts.MinLevel,
		enc:          zapcore.NewJSONEncoder(encCfg),
		ship:         s,
	}
}

// With clones the core with the fields pre-encoded, matching zapcore.ioCore.
func (c *DatadogCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for i := range fields {
		fields[i].AddTo(enc)
	}
	return &DatadogCore{
		LevelEnabler: c.LevelEnabler,
		enc:          enc,
		ship:         c.ship,
	}
}

func (c *DatadogCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write encodes the entry and enqueues it. It returns nil even when the
// entry is dropped: export is best-effort and failures here must never
// surface to the code that logged.
func (c *DatadogCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	rec := record{
		DDSource: c.ship.opts.Source,
		DDTags:   c.ship.ddtags,
		Hostname: c.ship.opts.Hostname,
		Service:  c.ship.opts.Service,
		Status:   ent.Level.String(),
		Message:  strings.TrimRight(buf.String(), "\n"),
	}
	buf.Free()

	// Non-blocking send: a full queue drops the newest entry.
	select {
	case c.ship.queue <- rec:
	default:
		c.ship.dropped.Add(1)
	}
	return nil
}

// Sync asks the worker to flush and waits briefly. It never blocks past the
// timeout — Sync is called on hot shutdown paths and from zap internals.
func (c *DatadogCore) Sync() error {
	ack := make(chan struct{})
	select {
	case c.ship.flushCh <- ack:
	case <-c.ship.done:
		return nil
	case <-time.After(time.Second):
		return nil
	}
	select {
	case <-ack:
	case <-time.After(5 * time.Second):
	}
	return nil
}

// Stop flushes pending entries and terminates the worker. Safe to call more
// than once: shutdown paths tend to compose defers, and every caller blocks
// until the worker has drained.
func (c *DatadogCore) Stop() {
	c.ship.stopOnce.Do(func() { close(c.ship.done) })
	c.ship.wg.Wait()
}

// worker drains the queue, shipping batches when they fill or on the flush
// interval, whichever comes first. It is the only goroutine touching the
// network, so intake slowness translates into queue backpressure (and
// eventually drops), never into blocked callers.
func (s *shipper) worker() {
	defer s.wg.Done()

	batch := make([]record, 0, s.opts.BatchSize)
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if d := s.dropped.Swap(0); d > 0 {
			fmt.Fprintf(os.Stderr, "greeting-service: log export queue full, dropped %d records\n", d)
		}
		if len(batch) == 0 {
			return
		}
		s.send(batch)
		batch = batch[:0]
	}

	// drain moves whatever is already queued into the batch, flushing as
	// batches fill. It never blocks.
	drain := func() {
		for {
			select {
			case rec := <-s.queue:
				batch = append(batch, rec)
				if len(batch) >= s.opts.BatchSize {
					flush()
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case rec := <-s.queue:
			batch = append(batch, rec)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case ack := <-s.flushCh:
			drain()
			flush()
			close(ack)
		case <-s.done:
			drain()
			flush()
			return
		}
	}
}

// send posts one batch to the intake endpoint. All failures are local:
// printed to stderr and forgotten.
func (s *shipper) send(batch []record) {
	body, err := json.Marshal(batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "greeting-service: encoding log batch: %v\n", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "greeting-service: building intake request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", s.opts.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "greeting-service: shipping %d log records: %v\n", len(batch), err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "greeting-service: log intake returned %s\n", resp.Status)
	}
}
