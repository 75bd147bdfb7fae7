package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// takeScript reads, measures and deletes a record in one step so that
// only one caller can observe it.
var takeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
local ttl = redis.call('PTTL', KEYS[1])
redis.call('DEL', KEYS[1])
return {v, ttl}
`)

// RedisStore is a Store backed by Redis string keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a store that namespaces its keys under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "casse"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("store", "pending")),
	}
}

func (s *RedisStore) Put(ctx context.Context, sub Submission, ttl time.Duration) (*Submission, error) {
	key, err := s.pendingKey(sub.Owner, sub.Title)
	if err != nil {
		return nil, err
	}

	decision, err := s.decisionKey(sub.Owner, sub.Title)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	// A fresh submission supersedes any earlier decision for the pair.
	var set *redis.StatusCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		set = pipe.SetArgs(ctx, key, data, redis.SetArgs{TTL: ttl, Get: true})
		pipe.Del(ctx, decision)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	prev, err := set.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	var replaced Submission
	if err := json.Unmarshal([]byte(prev), &replaced); err != nil {
		s.logger.Warn("replaced record was unreadable", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &replaced, nil
}

func (s *RedisStore) Get(ctx context.Context, owner, title string) (*Submission, error) {
	key, err := s.pendingKey(owner, title)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var sub Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &sub, nil
}

func (s *RedisStore) Delete(ctx context.Context, owner, title string) (bool, error) {
	key, err := s.pendingKey(owner, title)
	if err != nil {
		return false, err
	}

	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Take(ctx context.Context, owner, title string) (*Claim, error) {
	key, err := s.pendingKey(owner, title)
	if err != nil {
		return nil, err
	}

	res, err := takeScript.Run(ctx, s.client, []string{key}).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", key, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("take %s: unexpected reply of length %d", key, len(res))
	}

	raw, _ := res[0].(string)
	ttl, _ := res[1].(int64)

	var sub Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	claim := &Claim{Submission: sub}
	if ttl > 0 {
		claim.Remaining = time.Duration(ttl) * time.Millisecond
	}
	return claim, nil
}

func (s *RedisStore) Restore(ctx context.Context, claim *Claim) error {
	key, err := s.pendingKey(claim.Submission.Owner, claim.Submission.Title)
	if err != nil {
		return err
	}

	data, err := json.Marshal(claim.Submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, data, claim.Remaining).Result()
	if err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) MarkDecided(ctx context.Context, d Decision, grace time.Duration) error {
	key, err := s.decisionKey(d.Owner, d.Title)
	if err != nil {
		return err
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	if err := s.client.Set(ctx, key, data, grace).Err(); err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Decided(ctx context.Context, owner, title string) (*Decision, error) {
	key, err := s.decisionKey(owner, title)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var d Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &d, nil
}

func (s *RedisStore) pendingKey(owner, title string) (string, error) {
	return s.key("pending", owner, title)
}

func (s *RedisStore) decisionKey(owner, title string) (string, error) {
	return s.key("decision", owner, title)
}

func (s *RedisStore) key(kind, owner, title string) (string, error) {
	if !ValidKeyPart(owner) || !ValidKeyPart(title) {
		return "", ErrInvalidKey
	}
	return s.prefix + ":" + kind + ":" + owner + ":" + title, nil
}
