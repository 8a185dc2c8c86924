package syncapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/roadtothesky/internal/plugins/calendar"
)

// RedisNotifier publishes calendar date changes as JSON on the campaign's
// date change channel.
type RedisNotifier struct {
	rdb redis.Cmdable
}

// NewRedisNotifier creates a notifier publishing through rdb.
func NewRedisNotifier(rdb redis.Cmdable) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// PublishDateTimeChange implements calendar.Notifier.
func (n *RedisNotifier) PublishDateTimeChange(ctx context.Context, ev calendar.DateTimeChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding date change: %w", err)
	}

	receivers, err := n.rdb.Publish(ctx, DateTimeChannel(ev.CampaignID), payload).Result()
	if err != nil {
		return fmt.Errorf("publishing date change: %w", err)
	}
	slog.Debug("date change published",
		slog.String("campaign_id", ev.CampaignID),
		slog.Int64("diff", ev.Diff),
		slog.Int64("receivers", receivers),
	)
	return nil
}

// SubscribeDateTimeChanges streams a campaign's date change events until
// ctx is cancelled. Messages that fail to decode are logged and skipped.
func SubscribeDateTimeChanges(ctx context.Context, rdb redis.UniversalClient, campaignID string) (<-chan calendar.DateTimeChangeEvent, error) {
	sub := rdb.Subscribe(ctx, DateTimeChannel(campaignID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribing to date changes: %w", err)
	}

	out := make(chan calendar.DateTimeChangeEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev calendar.DateTimeChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("skipping malformed date change",
						slog.String("channel", msg.Channel),
						slog.Any("error", err),
					)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
