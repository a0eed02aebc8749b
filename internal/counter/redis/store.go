package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"ticket-relay/internal/counter"
)

const defaultHashKey = "tickets"

// incrScript applies a delta to one hash field and rejects results below
// zero. Redis evaluates scripts atomically, which gives the per-event
// serialization the store contract requires.
var incrScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local total = current + tonumber(ARGV[2])
if total < 0 then
  return redis.error_reply('NEGATIVE_TOTAL')
end
redis.call('HSET', KEYS[1], ARGV[1], total)
return total
`)

// Store is the Redis-backed counter store. All counters live in a single
// hash keyed by event name.
type Store struct {
	Client  *redis.Client
	HashKey string
}

func NewStore(client *redis.Client) *Store {
	return &Store{Client: client, HashKey: defaultHashKey}
}

func (s *Store) Increment(ctx context.Context, eventName string, delta int) (int, error) {
	total, err := incrScript.Run(ctx, s.Client, []string{s.HashKey}, eventName, delta).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "NEGATIVE_TOTAL") {
			return 0, counter.ErrNegativeTotal
		}
		return 0, storeErr(err)
	}
	return int(total), nil
}

func (s *Store) SetAbsolute(ctx context.Context, eventName string, total int) (int, error) {
	if err := s.Client.HSet(ctx, s.HashKey, eventName, total).Err(); err != nil {
		return 0, storeErr(err)
	}
	return total, nil
}

func (s *Store) GetAll(ctx context.Context) (map[string]int, error) {
	raw, err := s.Client.HGetAll(ctx, s.HashKey).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	totals := make(map[string]int, len(raw))
	for name, value := range raw {
		total, err := strconv.Atoi(value)
		if err != nil {
			return nil, storeErr(fmt.Errorf("corrupt total for %q: %v", name, err))
		}
		totals[name] = total
	}
	return totals, nil
}

func (s *Store) Delete(ctx context.Context, eventName string) (bool, error) {
	removed, err := s.Client.HDel(ctx, s.HashKey, eventName).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return removed > 0, nil
}

func (s *Store) ResetAll(ctx context.Context) error {
	if err := s.Client.Del(ctx, s.HashKey).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", counter.ErrStoreUnavailable, err)
}
