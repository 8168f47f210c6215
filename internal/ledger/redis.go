package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"medshare/pkg/platform/sentinel"
)

// Key layout:
//
//	priv:<collection>:<key>      current private value
//	privhist:<collection>:<key>  private version history (list, oldest first)
//	privkeys:<collection>        lexical index of live private keys (zset)
//	pub:<key>                    current public value
//	pubhist:<key>                public history (list, oldest first)
const (
	privPrefix     = "priv:"
	privHistPrefix = "privhist:"
	privKeysPrefix = "privkeys:"
	pubPrefix      = "pub:"
	pubHistPrefix  = "pubhist:"
)

// RedisLedger is a Redis-backed record store for deployments where the
// replicated substrate exposes its snapshot through Redis. Per-key operations
// are pipelined; cross-key atomicity stays the substrate's problem, as the
// contract layer never needs more than one private plus one public key per
// invocation.
type RedisLedger struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) GetPrivate(ctx context.Context, collection, key string) ([]byte, error) {
	value, err := l.client.Get(ctx, privPrefix+collection+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get private: %w", sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (l *RedisLedger) PutPrivate(ctx context.Context, collection, key string, value []byte) error {
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, privPrefix+collection+":"+key, value, 0)
	pipe.RPush(ctx, privHistPrefix+collection+":"+key, value)
	pipe.ZAdd(ctx, privKeysPrefix+collection, redis.Z{Score: 0, Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis put private: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) DelPrivate(ctx context.Context, collection, key string) error {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, privPrefix+collection+":"+key)
	pipe.ZRem(ctx, privKeysPrefix+collection, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis del private: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) PurgePrivate(ctx context.Context, collection, key string) error {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, privPrefix+collection+":"+key)
	pipe.Del(ctx, privHistPrefix+collection+":"+key)
	pipe.ZRem(ctx, privKeysPrefix+collection, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis purge private: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) PrivateByRange(ctx context.Context, collection, start, end string) ([]KV, error) {
	min, max := "-", "+"
	if start != "" {
		min = "[" + start
	}
	if end != "" {
		max = "(" + end
	}
	keys, err := l.client.ZRangeByLex(ctx, privKeysPrefix+collection, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis range query: %w", sentinel.ErrUnavailable, err)
	}
	out := make([]KV, 0, len(keys))
	for _, key := range keys {
		value, err := l.GetPrivate(ctx, collection, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Key removed between index read and value read.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, KV{Key: key, Value: value})
	}
	return out, nil
}

func (l *RedisLedger) PrivateQuery(ctx context.Context, collection string, sel Selector) ([]KV, error) {
	all, err := l.PrivateByRange(ctx, collection, "", "")
	if err != nil {
		return nil, err
	}
	out := make([]KV, 0, len(all))
	for _, kv := range all {
		if matchesSelector(kv.Value, sel) {
			out = append(out, kv)
		}
	}
	return out, nil
}

func (l *RedisLedger) PutState(ctx context.Context, key string, value []byte) error {
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, pubPrefix+key, value, 0)
	pipe.RPush(ctx, pubHistPrefix+key, value)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis put state: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) GetState(ctx context.Context, key string) ([]byte, error) {
	value, err := l.client.Get(ctx, pubPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get state: %w", sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (l *RedisLedger) HistoryForKey(ctx context.Context, key string) ([][]byte, error) {
	values, err := l.client.LRange(ctx, pubHistPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis history: %w", sentinel.ErrUnavailable, err)
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}
