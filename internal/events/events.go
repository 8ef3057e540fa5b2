// Package events publishes recommendation outcomes to downstream consumers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "crops.recommendations"

// RankedCrop is one scored candidate in an event.
type RankedCrop struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Degraded bool   `json:"degraded,omitempty"`
}

// RecommendationEvent is emitted after every successful recommendation.
type RecommendationEvent struct {
	RequestID         string       `json:"request_id"`
	City              string       `json:"city"`
	Month             int          `json:"month"`
	Region            string       `json:"region"`
	RegionSubstituted bool         `json:"region_substituted"`
	PrimaryCrop       string       `json:"primary_crop"`
	Crops             []RankedCrop `json:"crops"`
	At                time.Time    `json:"at"`
}

// Publisher delivers recommendation events.
type Publisher interface {
	PublishRecommendation(ctx context.Context, ev RecommendationEvent) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRecommendation(context.Context, RecommendationEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSPublisher publishes JSON events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("crop-recommendation"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: nc, subject: cfg.Subject}, nil
}

func (p *NATSPublisher) PublishRecommendation(ctx context.Context, ev RecommendationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	if err != nil {
		p.conn.Close()
	}
	return err
}

// Encode renders the wire form of an event.
func Encode(ev RecommendationEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation event: %w", err)
	}
	return data, nil
}
