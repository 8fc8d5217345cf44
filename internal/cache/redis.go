package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Redis implements SnapshotCache and TaskLock on one redis connection.
type Redis struct {
	client *redis.Client
	log    *log.Logger
}

// NewRedis connects and pings the redis instance at addr.
func NewRedis(ctx context.Context, addr, password string, db int, logger *log.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, apperr.Infra("cache_connect", err)
	}
	return &Redis{client: client, log: logger.WithPrefix("cache")}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// Store writes the batch in a single pipeline: one SET per snapshot,
// one ZADD per snapshot into the table's index, one EXPIRE per touched
// index.
func (r *Redis) Store(ctx context.Context, snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	touched := map[string]struct{}{}
	for _, snap := range snapshots {
		key := snapshotKey(snap.TableID, snap.EventNumber)
		pipe.Set(ctx, key, snap.State, SnapshotTTL)
		pipe.ZAdd(ctx, indexKey(snap.TableID), redis.Z{
			Score:  float64(snap.EventNumber),
			Member: key,
		})
		touched[snap.TableID] = struct{}{}
	}
	for tableID := range touched {
		pipe.Expire(ctx, indexKey(tableID), SnapshotTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Infra("cache_store", err)
	}
	return nil
}

// GetExactOrNearest tries the exact key first, then walks the index
// down from eventNumber. Index members whose value already expired are
// pruned on the way.
func (r *Redis) GetExactOrNearest(ctx context.Context, tableID string, eventNumber int64) (Lookup, bool, error) {
	data, err := r.client.Get(ctx, snapshotKey(tableID, eventNumber)).Bytes()
	if err == nil {
		return Lookup{
			Snapshot: Snapshot{TableID: tableID, EventNumber: eventNumber, State: data},
			Exact:    true,
		}, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return Lookup{}, false, apperr.Infra("cache_get", err)
	}

	max := strconv.FormatInt(eventNumber, 10)
	for {
		keys, err := r.client.ZRevRangeByScore(ctx, indexKey(tableID), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   max,
			Count: 1,
		}).Result()
		if err != nil {
			return Lookup{}, false, apperr.Infra("cache_index", err)
		}
		if len(keys) == 0 {
			return Lookup{}, false, nil
		}

		key := keys[0]
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// value expired before its index entry
			if err := r.client.ZRem(ctx, indexKey(tableID), key).Err(); err != nil {
				return Lookup{}, false, apperr.Infra("cache_index", err)
			}
			number, ok := eventNumberFromKey(key)
			if !ok {
				return Lookup{}, false, nil
			}
			max = "(" + strconv.FormatInt(number, 10)
			continue
		}
		if err != nil {
			return Lookup{}, false, apperr.Infra("cache_get", err)
		}
		number, ok := eventNumberFromKey(key)
		if !ok {
			return Lookup{}, false, apperr.Internal("cache_key", "malformed snapshot key: "+key)
		}
		return Lookup{
			Snapshot: Snapshot{TableID: tableID, EventNumber: number, State: data},
			Exact:    number == eventNumber,
		}, true, nil
	}
}

func eventNumberFromKey(key string) (int64, bool) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return 0, false
	}
	number, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

// SetLock implements TaskLock via SET NX with the lock TTL.
func (r *Redis) SetLock(ctx context.Context, key string) (bool, error) {
	acquired, err := r.client.SetNX(ctx, key, "1", LockTTL).Result()
	if err != nil {
		return false, apperr.Infra("cache_lock", err)
	}
	return acquired, nil
}

// Release drops the lock.
func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperr.Infra("cache_lock", err)
	}
	return nil
}
