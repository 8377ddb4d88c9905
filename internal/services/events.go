package services

import (
	"context"
	"time"

	"github.com/jat99/PowerMonitor/internal/outage"
)

// OutageEventType names an outage lifecycle transition
type OutageEventType string

const (
	OutageOpened   OutageEventType = "opened"
	OutageResolved OutageEventType = "resolved"
)

// OutageEvent is published whenever an outage is opened or resolved
type OutageEvent struct {
	Type      OutageEventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Outage    outage.View     `json:"outage"`
}

// EventPublisher receives outage lifecycle events. Implementations must not block.
type EventPublisher interface {
	PublishOutageEvent(ctx context.Context, event OutageEvent)
}

// Publishers fans an event out to every publisher in order
type Publishers []EventPublisher

// PublishOutageEvent implements EventPublisher
func (p Publishers) PublishOutageEvent(ctx context.Context, event OutageEvent) {
	for _, pub := range p {
		if pub != nil {
			pub.PublishOutageEvent(ctx, event)
		}
	}
}

// nopPublisher drops every event
type nopPublisher struct{}

func (nopPublisher) PublishOutageEvent(context.Context, OutageEvent) {}
