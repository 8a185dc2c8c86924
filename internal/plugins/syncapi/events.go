package syncapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
	"github.com/keyxmakerx/roadtothesky/internal/plugins/calendar"
)

// keepAliveInterval is how often an idle event stream sends a comment line
// so proxies do not close it.
const keepAliveInterval = 30 * time.Second

// subscribeFunc opens a campaign's date change stream. The channel closes
// when ctx is cancelled.
type subscribeFunc func(ctx context.Context, campaignID string) (<-chan calendar.DateTimeChangeEvent, error)

// EventsHandler streams calendar date changes to the host runtime as
// server-sent events.
type EventsHandler struct {
	subscribe subscribeFunc
	keepAlive time.Duration
}

// NewEventsHandler creates an events handler reading the campaign channels
// on rdb.
func NewEventsHandler(rdb redis.UniversalClient) *EventsHandler {
	return &EventsHandler{
		subscribe: func(ctx context.Context, campaignID string) (<-chan calendar.DateTimeChangeEvent, error) {
			return SubscribeDateTimeChanges(ctx, rdb, campaignID)
		},
		keepAlive: keepAliveInterval,
	}
}

// StreamDateTimeChanges holds the connection open and writes one
// "datetime" event per date change (GET /api/v1/campaigns/:id/events).
func (h *EventsHandler) StreamDateTimeChanges(c echo.Context) error {
	campaignID := c.Param("id")
	ctx := c.Request().Context()

	events, err := h.subscribe(ctx, campaignID)
	if err != nil {
		return apperror.NewInternal(err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("encoding date change event",
					slog.String("campaign_id", campaignID),
					slog.Any("error", err),
				)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: datetime\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
