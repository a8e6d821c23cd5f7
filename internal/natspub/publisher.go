// Package natspub publishes table of contents updates to NATS and keeps the
// latest one in a JetStream key-value bucket.
package natspub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/logfields"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Config holds connection and naming settings.
type Config struct {
	URL     string
	Subject string
	// Stream, when set, is created or updated to capture Subject and updates
	// are published through JetStream. Otherwise core NATS publish is used.
	Stream   string
	KVBucket string
	Key      string
	Timeout  time.Duration
}

// Update is the message payload.
type Update struct {
	TickID      string    `json:"tick_id"`
	Document    string    `json:"document"`
	Fingerprint string    `json:"fingerprint"`
	Revision    string    `json:"revision,omitempty"`
	Primary     int       `json:"primary_entries"`
	Secondary   int       `json:"secondary_entries"`
	HTML        string    `json:"html"`
	Tree        *toc.Tree `json:"tree"`
	PublishedAt time.Time `json:"published_at"`
}

// NewUpdate builds the payload for a successful tick.
func NewUpdate(document string, o *refresh.Outcome, now time.Time) Update {
	return Update{
		TickID:      o.TickID,
		Document:    document,
		Fingerprint: o.Fingerprint,
		Revision:    o.Revision,
		Primary:     o.Primary,
		Secondary:   o.Secondary,
		HTML:        string(o.Rendered),
		Tree:        o.Tree,
		PublishedAt: now.UTC(),
	}
}

// Publisher implements refresh.Observer.
type Publisher struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	kv       jetstream.KeyValue
	cfg      Config
	document string
	logger   *slog.Logger
}

// Connect dials NATS and prepares the KV bucket (and stream, if configured).
func Connect(ctx context.Context, cfg Config, document string) (*Publisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Subject == "" {
		return nil, errors.ConfigError("nats subject is required").Build()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("nbtoc"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{
		conn:     conn,
		js:       js,
		cfg:      cfg,
		document: document,
		logger:   slog.Default(),
	}

	if err := p.initStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := p.initKVBucket(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	p.logger.Info("NATS publisher initialized",
		"url", cfg.URL,
		logfields.Subject(cfg.Subject),
		"kv_bucket", cfg.KVBucket)
	return p, nil
}

// WithLogger sets the logger.
func (p *Publisher) WithLogger(l *slog.Logger) *Publisher {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *Publisher) initStream(ctx context.Context) error {
	if p.cfg.Stream == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.cfg.Stream,
		Description: "Table of contents updates",
		Subjects:    []string{p.cfg.Subject},
		MaxMsgs:     1000,
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to create stream").
			WithContext("stream", p.cfg.Stream).
			Build()
	}
	return nil
}

func (p *Publisher) initKVBucket(ctx context.Context) error {
	if p.cfg.KVBucket == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	kv, err := p.js.KeyValue(ctx, p.cfg.KVBucket)
	if err == nil {
		p.kv = kv
		return nil
	}

	kv, err = p.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      p.cfg.KVBucket,
		Description: "Latest table of contents per document",
		History:     1,
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to create KV bucket").
			WithContext("bucket", p.cfg.KVBucket).
			Build()
	}
	p.kv = kv
	p.logger.Info("Created KV bucket for table of contents", "bucket", p.cfg.KVBucket)
	return nil
}

func (p *Publisher) Name() string { return "nats" }

// Notify publishes the update and stores it as the latest value.
func (p *Publisher) Notify(ctx context.Context, o *refresh.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(NewUpdate(p.document, o, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	if p.cfg.Stream != "" {
		_, err = p.js.Publish(ctx, p.cfg.Subject, data)
	} else {
		err = p.conn.Publish(p.cfg.Subject, data)
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish update").
			WithContext("subject", p.cfg.Subject).
			Build()
	}

	if p.kv != nil {
		if _, err := p.kv.Put(ctx, p.key(), data); err != nil {
			return errors.WrapError(err, errors.CategoryStorage, "failed to store latest update").
				WithContext("bucket", p.cfg.KVBucket).
				Build()
		}
	}

	p.logger.Debug("Published table of contents update",
		logfields.TickID(o.TickID),
		logfields.Subject(p.cfg.Subject),
		logfields.Fingerprint(o.Fingerprint))
	return nil
}

// Latest returns the stored update, or nil when none exists.
func (p *Publisher) Latest(ctx context.Context) (*Update, error) {
	if p.kv == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	entry, err := p.kv.Get(ctx, p.key())
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest update: %w", err)
	}

	var u Update
	if err := json.Unmarshal(entry.Value(), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest update: %w", err)
	}
	return &u, nil
}

func (p *Publisher) key() string {
	if p.cfg.Key != "" {
		return p.cfg.Key
	}
	return KeyFor(p.document)
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
