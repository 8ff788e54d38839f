package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AppSessionStore keeps the browser sessions in Redis; the web workers share
// no memory, so this is the only place a session lives. Sessions are sliding:
// every successful Get pushes the expiry out by the configured TTL.
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

type AppSession struct {
	UserID   string `json:"uid"`
	IssuedAt int64  `json:"iat"`
}

func key(id string) string         { return fmt.Sprintf("gear:sess:%s", id) }
func userSetKey(uid string) string { return fmt.Sprintf("gear:user_sessions:%s", uid) }

// Create stores the session and records it on the user's session set so all
// of a user's sessions can be revoked at once.
func (s *AppSessionStore) Create(ctx context.Context, id, userID string) error {
	b, _ := json.Marshal(AppSession{
		UserID:   userID,
		IssuedAt: time.Now().Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), id)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get resolves a session and slides its expiry window forward.
func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.GetEx(ctx, key(id), s.ttl).Bytes()
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	s.rdb.Expire(ctx, userSetKey(as.UserID), s.ttl)
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // best effort
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, userSetKey(as.UserID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser drops every session of a user, used on account deletion.
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
