package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/antenna/internal/service"
)

// ErrNotFound is returned when no record exists for a service ID.
var ErrNotFound = errors.New("service record not found")

// Store persists durable service records in Redis. Records have no TTL:
// a service's component table must survive arbitrary downtime.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveRecord stores one service record
func (s *Store) SaveRecord(ctx context.Context, rec *service.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal service record: %w", err)
	}

	key := ServiceKey(rec.ID)

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save service record: %w", err)
	}

	// Add to set of all services
	if err := s.client.SAdd(ctx, AllServicesKey(), rec.ID).Err(); err != nil {
		return fmt.Errorf("failed to add service to set: %w", err)
	}

	return nil
}

// GetRecord retrieves one service record by ID
func (s *Store) GetRecord(ctx context.Context, id string) (*service.Record, error) {
	key := ServiceKey(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get service record: %w", err)
	}

	var rec service.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service record: %w", err)
	}

	return &rec, nil
}

// GetAllRecords retrieves every stored service record
func (s *Store) GetAllRecords(ctx context.Context) ([]*service.Record, error) {
	ids, err := s.client.SMembers(ctx, AllServicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get service IDs: %w", err)
	}

	if len(ids) == 0 {
		return []*service.Record{}, nil
	}

	records := make([]*service.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetRecord(ctx, id)
		if err != nil {
			// Skip records that couldn't be retrieved
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// DeleteRecord removes a service record
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	key := ServiceKey(id)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete service record: %w", err)
	}

	if err := s.client.SRem(ctx, AllServicesKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove service from set: %w", err)
	}

	return nil
}
