package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"uno-dealer/internal/game"
)

const (
	deskKeyPrefix = "desk:"

	// deskExpiration bounds how long an abandoned Desk lingers.
	deskExpiration = 2 * time.Hour
)

// DeskStore is the keyed state store for Desk records: one authoritative
// record per dealer code, read and replaced whole. The single-writer
// discipline is enforced upstream by the Dealer's lock.
type DeskStore struct {
	client *redis.Client
}

func NewDeskStore(client *redis.Client) *DeskStore {
	return &DeskStore{client: client}
}

// Set replaces the stored Desk for its dealer code.
func (s *DeskStore) Set(ctx context.Context, desk *game.Desk) error {
	if desk == nil {
		return nil
	}
	data, err := json.Marshal(desk)
	if err != nil {
		return fmt.Errorf("marshal desk %s: %w", desk.DealerCode, err)
	}
	return s.SetData(ctx, desk.DealerCode, data)
}

// SetData replaces the stored record for a dealer code with an
// already-marshalled Desk. Callers that hold the dealer lock marshal first
// and hand off the bytes, so the write never reads live state.
func (s *DeskStore) SetData(ctx context.Context, code string, data []byte) error {
	return s.client.Set(ctx, deskKeyPrefix+code, data, deskExpiration).Err()
}

// Get loads the Desk for a dealer code, or nil if none is stored.
func (s *DeskStore) Get(ctx context.Context, code string) (*game.Desk, error) {
	data, err := s.client.Get(ctx, deskKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var desk game.Desk
	if err := json.Unmarshal(data, &desk); err != nil {
		return nil, fmt.Errorf("unmarshal desk %s: %w", code, err)
	}
	return &desk, nil
}

// Delete removes the stored Desk for a dealer code.
func (s *DeskStore) Delete(ctx context.Context, code string) error {
	return s.client.Del(ctx, deskKeyPrefix+code).Err()
}
