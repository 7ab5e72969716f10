package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix     = "schoolboard:"
	maxReplaceAttempts = 3
)

// ErrDuplicateRecord indicates an insert collided with an existing identifier.
var ErrDuplicateRecord = errors.New("records: duplicate record id")

// RedisRepository stores a collection as a hash of identifier -> JSON document.
type RedisRepository[R Record] struct {
	client *redis.Client
	key    string
}

// NewRedisRepository binds a repository to the kind's hash key.
func NewRedisRepository[R Record](client *redis.Client, kind Kind) *RedisRepository[R] {
	return &RedisRepository[R]{client: client, key: collectionKey(kind)}
}

func collectionKey(kind Kind) string {
	return redisKeyPrefix + kind.Collection()
}

func (r *RedisRepository[R]) List(ctx context.Context) ([]R, error) {
	documents, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	items := make([]R, 0, len(documents))
	for id, document := range documents {
		var item R
		if err := json.Unmarshal([]byte(document), &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", r.key, id, err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RecordID() < items[j].RecordID()
	})
	return items, nil
}

func (r *RedisRepository[R]) Insert(ctx context.Context, record R) error {
	document, err := json.Marshal(record)
	if err != nil {
		return err
	}
	created, err := r.client.HSetNX(ctx, r.key, record.RecordID(), document).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateRecord
	}
	return nil
}

// Replace overwrites an existing document. The existence check and the write run
// under WATCH so a concurrent Remove cannot be undone; the transaction is retried
// a bounded number of times when the key changes underneath it.
func (r *RedisRepository[R]) Replace(ctx context.Context, id string, record R) error {
	document, err := json.Marshal(record)
	if err != nil {
		return err
	}
	replace := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, r.key, id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return ErrRecordNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, id, document)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxReplaceAttempts; attempt++ {
		err = r.client.Watch(ctx, replace, r.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("replace %s/%s: %w", r.key, id, err)
}

func (r *RedisRepository[R]) Remove(ctx context.Context, id string) error {
	removed, err := r.client.HDel(ctx, r.key, id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrRecordNotFound
	}
	return nil
}
