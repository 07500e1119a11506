package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const approvalKeyPrefix = "openradius:monitor:approval:"

// RedisStore keeps approvals in Redis so multiple hub instances share one
// approval set.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func approvalKey(serviceName string) string {
	return approvalKeyPrefix + serviceName
}

func (s *RedisStore) GetApproval(ctx context.Context, serviceName string) (*Approval, error) {
	data, err := s.client.Get(ctx, approvalKey(serviceName)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get approval: %w", err)
	}

	var a Approval
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode approval for %s: %w", serviceName, err)
	}
	return &a, nil
}

func (s *RedisStore) SaveApproval(ctx context.Context, a *Approval) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode approval for %s: %w", a.ServiceName, err)
	}
	if err := s.client.Set(ctx, approvalKey(a.ServiceName), data, 0).Err(); err != nil {
		return fmt.Errorf("redis save approval: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteApproval(ctx context.Context, serviceName string) error {
	if err := s.client.Del(ctx, approvalKey(serviceName)).Err(); err != nil {
		return fmt.Errorf("redis delete approval: %w", err)
	}
	return nil
}

func (s *RedisStore) ListApprovals(ctx context.Context) ([]*Approval, error) {
	var out []*Approval
	iter := s.client.Scan(ctx, 0, approvalKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis list approvals: %w", err)
		}
		var a Approval
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode approval %s: %w", iter.Val(), err)
		}
		out = append(out, &a)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan approvals: %w", err)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
