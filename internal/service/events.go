package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/research_repository/internal/logging"
)

const (
	TopicUserEvents   = "user_events"
	TopicRoleEvents   = "role_events"
	TopicAssetEvents  = "asset_events"
	TopicClientEvents = "client_events"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// publish is best effort: a broker outage never fails the request.
func publish(ctx context.Context, p EventPublisher, topic string, key any, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
