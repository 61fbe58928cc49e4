package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/signal"
)

// RedisStore is an alternative Store backend for deployments where the
// agent's session must survive the host, e.g. a kiosk fleet sharing one
// login. Same fixed keys as FileStore.
type RedisStore struct {
	client *redis.Client
	bus    *signal.Bus
	log    *slog.Logger
	ctx    context.Context
}

func NewRedisStore(addr, password string, bus *signal.Bus, log *slog.Logger) *RedisStore {
	if log == nil {
		log = logging.Discard()
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, bus: bus, log: log, ctx: context.Background()}
}

func (s *RedisStore) Load() (*models.Session, error) {
	tok, err := s.client.Get(s.ctx, TokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(s.ctx, UserKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("persisted identity malformed, treating session as absent", "error", err)
		return nil, nil
	}
	if strings.TrimSpace(tok) == "" {
		return nil, nil
	}
	return &models.Session{User: u, Token: tok}, nil
}

func (s *RedisStore) Save(sess *models.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.client.Set(s.ctx, UserKey, raw, 0).Err(); err != nil {
		return err
	}
	return s.client.Set(s.ctx, TokenKey, sess.Token, 0).Err()
}

func (s *RedisStore) Clear() error {
	n, err := s.client.Del(s.ctx, TokenKey, UserKey).Result()
	if err != nil {
		return err
	}
	if n > 0 && s.bus != nil {
		s.bus.PublishLogout()
	}
	return nil
}

// Ping is used by the diagnostics readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
