// Package syncapi connects the calendar to the host runtime. The host
// authenticates with a single bcrypt-hashed API key, reads and writes the
// campaign's world time kept in Redis, and listens for date change events
// published on a per-campaign Redis channel.
package syncapi

import "time"

// Redis key layout.
const (
	worldTimeKeyPrefix = "rtts:worldtime:"
	channelPrefix      = "rtts:calendar:"
	channelSuffix      = ":datetime"
)

// WorldTime is the host's world clock for one campaign, in seconds since
// the calendar epoch.
type WorldTime struct {
	CampaignID string    `json:"campaign_id"`
	Seconds    int64     `json:"seconds"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// storedWorldTime is the JSON value held under the world time key.
type storedWorldTime struct {
	Seconds   int64     `json:"seconds"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetWorldTimeInput is the body of PUT /api/v1/campaigns/:id/worldtime.
type SetWorldTimeInput struct {
	Seconds *int64 `json:"seconds"`
}

// SetWorldTimeResult reports the stored world time and whether the
// calendar moved to follow it.
type SetWorldTimeResult struct {
	WorldTime
	CalendarChanged bool `json:"calendar_changed"`
}

// WorldTimeKey returns the Redis key holding a campaign's world time.
func WorldTimeKey(campaignID string) string {
	return worldTimeKeyPrefix + campaignID
}

// DateTimeChannel returns the Redis channel a campaign's date change
// events are published on.
func DateTimeChannel(campaignID string) string {
	return channelPrefix + campaignID + channelSuffix
}
