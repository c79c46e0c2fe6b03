// Package events publishes build summaries to NATS so other systems (deploy
// hooks, link dashboards) can react to finished builds.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
)

// BrokenLink is a broken internal link in a build event.
type BrokenLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// BuildCompleted is published once per finished build.
type BuildCompleted struct {
	BuildID          string       `json:"build_id"`
	Outcome          string       `json:"outcome"`
	Documents        int          `json:"documents"`
	ErroredDocuments []string     `json:"errored_documents,omitempty"`
	BrokenLinks      []BrokenLink `json:"broken_links,omitempty"`
	EmitterFailures  []string     `json:"emitter_failures,omitempty"`
	ArtifactsWritten int          `json:"artifacts_written"`
	DurationMS       int64        `json:"duration_ms"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Publisher sends build events.
type Publisher interface {
	PublishBuild(ctx context.Context, ev *BuildCompleted) error
	Close()
}

// NoopPublisher discards events (default when no NATS URL is configured).
type NoopPublisher struct{}

func (NoopPublisher) PublishBuild(context.Context, *BuildCompleted) error { return nil }
func (NoopPublisher) Close()                                              {}

// NATSPublisher publishes build events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// New returns a NATS publisher when cfg names a server and a NoopPublisher otherwise.
func New(cfg config.EventsConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NoopPublisher{}, nil
	}
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("vaultsite"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized", slog.String("url", cfg.NATSURL), slog.String("subject", cfg.Subject))
	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishBuild marshals ev and waits until the server acknowledged the flush.
func (p *NATSPublisher) PublishBuild(ctx context.Context, ev *BuildCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), logfields.Outcome(ev.Outcome))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
