// Package session holds refresh-token state in Redis so tokens can be
// revoked server-side before their JWT expiry (logout, rotation, account
// deactivation). Keys carry a TTL matching the token lifetime; a per-user
// index set supports revoke-all.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/pkg/config"
)

var ErrSessionNotFound = errors.New("session not found or revoked")

const (
	tokenKeyPrefix = "session:token:"
	userKeyPrefix  = "session:user:"
)

type Store struct {
	rdb *redis.Client
}

func NewClient(conf *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Save records a refresh token for the user. The token key expires with
// the token; the user index keeps the id so RevokeAll can find it.
func (s *Store) Save(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, tokenKeyPrefix+tokenID, userID, ttl).Err(); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, userKey(userID), tokenID).Err()
}

// Validate returns the owning user if the token is still live.
func (s *Store) Validate(ctx context.Context, tokenID string) (uint, error) {
	val, err := s.rdb.Get(ctx, tokenKeyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value: %w", err)
	}
	return uint(userID), nil
}

// Revoke drops a single refresh token (logout, rotation).
func (s *Store) Revoke(ctx context.Context, tokenID string, userID uint) error {
	if err := s.rdb.Del(ctx, tokenKeyPrefix+tokenID).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, userKey(userID), tokenID).Err()
}

// RevokeAll drops every live session of the user (deactivation, password
// change).
func (s *Store) RevokeAll(ctx context.Context, userID uint) error {
	ids, err := s.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.rdb.Del(ctx, tokenKeyPrefix+id).Err(); err != nil {
			return err
		}
	}
	return s.rdb.Del(ctx, userKey(userID)).Err()
}

// PurgeExpired removes index entries whose token keys already expired.
// Redis reclaims the token keys itself; only the per-user sets need the
// sweep. Intended to run from the cron manager.
func (s *Store) PurgeExpired(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, userKeyPrefix+"*", 100).Result()
		if err != nil {
			klog.Errorf("session purge scan failed: %v", err)
			return
		}
		for _, key := range keys {
			ids, err := s.rdb.SMembers(ctx, key).Result()
			if err != nil {
				continue
			}
			for _, id := range ids {
				exists, err := s.rdb.Exists(ctx, tokenKeyPrefix+id).Result()
				if err == nil && exists == 0 {
					s.rdb.SRem(ctx, key, id)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func userKey(userID uint) string {
	return userKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}
