// Package memory provides an in-process publisher that keeps the encoded
// notifications for inspection. It is the default when Pub/Sub is not
// configured and the stand-in used by pipeline tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Message is one recorded publish.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher records published payloads in their JSON wire form.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes payload as JSON and records it under topic.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: data})
	return id, nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
