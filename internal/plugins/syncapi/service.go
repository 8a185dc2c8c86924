package syncapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

// keyBytes is the number of random bytes in a generated API key.
const keyBytes = 32

// keyPrefix marks generated keys so they are recognisable in configs.
const keyPrefix = "rtts_"

// WorldTimeStore persists the host's world time per campaign.
type WorldTimeStore interface {
	Get(ctx context.Context, campaignID string) (*WorldTime, error)
	Set(ctx context.Context, campaignID string, seconds int64) (*WorldTime, error)
}

// CalendarSyncer is the part of the calendar service the world clock
// drives. It is satisfied by calendar.CalendarService.
type CalendarSyncer interface {
	SetFromWorldTime(ctx context.Context, campaignID string, seconds int64) (bool, error)
}

// WorldTimeService handles the host runtime's world clock reads and writes.
type WorldTimeService interface {
	GetWorldTime(ctx context.Context, campaignID string) (*WorldTime, error)
	SetWorldTime(ctx context.Context, campaignID string, seconds int64) (*SetWorldTimeResult, error)
}

// worldTimeService implements WorldTimeService.
type worldTimeService struct {
	store    WorldTimeStore
	calendar CalendarSyncer
}

// NewWorldTimeService creates a world time service. Writes are stored and
// then handed to the calendar, which follows them in the third-party and
// mixed integration modes.
func NewWorldTimeService(store WorldTimeStore, cal CalendarSyncer) WorldTimeService {
	return &worldTimeService{store: store, calendar: cal}
}

// GetWorldTime returns the stored world time for a campaign.
func (s *worldTimeService) GetWorldTime(ctx context.Context, campaignID string) (*WorldTime, error) {
	wt, err := s.store.Get(ctx, campaignID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if wt == nil {
		return nil, apperror.NewNotFound("world time not set")
	}
	return wt, nil
}

// SetWorldTime stores the host's world time and lets the calendar follow it.
func (s *worldTimeService) SetWorldTime(ctx context.Context, campaignID string, seconds int64) (*SetWorldTimeResult, error) {
	if seconds < 0 {
		return nil, apperror.NewValidation("world time cannot be before the calendar epoch")
	}

	wt, err := s.store.Set(ctx, campaignID, seconds)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	changed, err := s.calendar.SetFromWorldTime(ctx, campaignID, seconds)
	if err != nil {
		return nil, err
	}
	if changed {
		slog.Info("calendar followed world time",
			slog.String("campaign_id", campaignID),
			slog.Int64("seconds", seconds),
		)
	}
	return &SetWorldTimeResult{WorldTime: *wt, CalendarChanged: changed}, nil
}

// GenerateKey creates a new host API key and its bcrypt hash. The raw key
// goes to the host runtime; only the hash is configured on the server.
func GenerateKey() (rawKey, hash string, err error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	rawKey = keyPrefix + hex.EncodeToString(raw)

	h, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hashing key: %w", err)
	}
	return rawKey, string(h), nil
}
