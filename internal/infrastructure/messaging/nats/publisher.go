package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/health-checker/pkg/logger"
)

// Options configures the report stream.
type Options struct {
	URL        string
	Stream     string
	Subject    string
	MaxAge     time.Duration
	AckTimeout time.Duration
}

// Publisher implements port.EventPublisher on top of NATS JetStream.
// Every publish waits for the stream ack.
type Publisher struct {
	nc         *nats.Conn
	js         nats.JetStreamContext
	ackTimeout time.Duration
	logger     *logger.Logger
}

// NewPublisher connects to NATS and makes sure the report stream exists.
func NewPublisher(opts Options, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(opts.URL,
		nats.Name("health-checker"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, opts); err != nil {
		nc.Close()
		return nil, err
	}

	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 5 * time.Second
	}

	log.Info("Connected to NATS", "url", opts.URL, "stream", opts.Stream)

	return &Publisher{
		nc:         nc,
		js:         js,
		ackTimeout: opts.AckTimeout,
		logger:     log,
	}, nil
}

func ensureStream(js nats.JetStreamContext, opts Options) error {
	if opts.Stream == "" {
		return nil
	}

	_, err := js.StreamInfo(opts.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", opts.Stream, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.Stream,
		Subjects: []string{opts.Subject + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   opts.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", opts.Stream, err)
	}

	return nil
}

// PublishEvent marshals event to JSON and publishes it, waiting for the ack.
func (p *Publisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ackTimeout)
		defer cancel()
	}

	ack, err := p.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"stream", ack.Stream,
		"seq", ack.Sequence,
		"size", len(data),
	)

	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
