// Package pubsub publishes company notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/JakeFAU/vc-portfolio-digest/internal/hash/sha256"
)

// Config names the project and default topic.
type Config struct {
	ProjectID string
	TopicID   string
}

// Validate reports missing identifiers.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("pubsub project id is required")
	}
	if c.TopicID == "" {
		return errors.New("pubsub topic id is required")
	}
	return nil
}

// Publisher wraps a Pub/Sub client. Topic handles are created lazily and
// stopped on Close.
type Publisher struct {
	client       *pubsub.Client
	defaultTopic string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// Open dials Pub/Sub for cfg.ProjectID.
func Open(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return New(client, cfg.TopicID), nil
}

// New wraps an existing client. defaultTopic is used when Publish is called
// with an empty topic.
func New(client *pubsub.Client, defaultTopic string) *Publisher {
	return &Publisher{
		client:       client,
		defaultTopic: defaultTopic,
		topics:       make(map[string]*pubsub.Topic),
	}
}

// Publish marshals payload to JSON and waits for the server-assigned ID. The
// message carries a SHA-256 fingerprint of its body.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.client == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	if topic == "" {
		topic = p.defaultTopic
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"content_type":      "application/json",
			sha256.AttributeKey: sha256.Fingerprint(data),
		},
	}
	result := p.topic(topic).Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending publishes and releases the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
	p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		return t
	}
	t := p.client.Topic(name)
	p.topics[name] = t
	return t
}
