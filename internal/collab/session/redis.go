package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/common/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store using Redis. Every write runs in a WATCH/MULTI
// transaction so several collabd replicas can share one Redis.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based session store
func NewRedisStore(logger *zap.Logger, cfg config.SessionRedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "collab"
	}
	return &RedisStore{
		logger: logger.Named("session.store.redis"),
		client: client,
		prefix: prefix + ":",
	}, nil
}

func (s *RedisStore) sessionKey(token string) string {
	return s.prefix + "session:" + token
}

func (s *RedisStore) snippetKey(snippetID uint) string {
	return s.prefix + "snippet:" + strconv.FormatUint(uint64(snippetID), 10)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "sessions"
}

// Create implements Store.Create
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	snippetKey := s.snippetKey(sess.SnippetID)
	sessionKey := s.sessionKey(sess.Token)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, snippetKey, sessionKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return cnst.ErrDuplicateSession
		}

		stored := sess.Clone()
		stored.Version = 1
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey, data, 0)
			pipe.Set(ctx, snippetKey, sess.Token, 0)
			pipe.SAdd(ctx, s.indexKey(), sess.Token)
			return nil
		})
		return err
	}, snippetKey, sessionKey)
	if errors.Is(err, redis.TxFailedErr) {
		// another replica touched the snippet between WATCH and EXEC
		return cnst.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	sess.Version = 1
	return nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c stringGetter, token string) (*Session, error) {
	data, err := c.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Cursors == nil {
		sess.Cursors = make(map[uint]CursorPosition)
	}
	return &sess, nil
}

// Get implements Store.Get
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	return s.load(ctx, s.client, token)
}

// GetBySnippet implements Store.GetBySnippet
func (s *RedisStore) GetBySnippet(ctx context.Context, snippetID uint) (*Session, error) {
	token, err := s.client.Get(ctx, s.snippetKey(snippetID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s.load(ctx, s.client, token)
}

// CompareAndSwap implements Store.CompareAndSwap
func (s *RedisStore) CompareAndSwap(ctx context.Context, sess *Session, expectedVersion int64) error {
	key := s.sessionKey(sess.Token)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, sess.Token)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return cnst.ErrVersionConflict
		}

		next := sess.Clone()
		next.Version = expectedVersion + 1
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return cnst.ErrVersionConflict
	}
	if err != nil {
		return err
	}

	sess.Version = expectedVersion + 1
	return nil
}

// Delete implements Store.Delete
func (s *RedisStore) Delete(ctx context.Context, token string) (bool, error) {
	key := s.sessionKey(token)
	deleted := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, token)
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		snippetKey := s.snippetKey(cur.SnippetID)
		owner, err := tx.Get(ctx, snippetKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if owner == token {
				pipe.Del(ctx, snippetKey)
			}
			pipe.SRem(ctx, s.indexKey(), token)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, cnst.ErrVersionConflict
	}
	return deleted, err
}

// List implements Store.List
func (s *RedisStore) List(ctx context.Context) ([]*Session, error) {
	tokens, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(tokens))
	for _, token := range tokens {
		sess, err := s.load(ctx, s.client, token)
		if errors.Is(err, ErrSessionNotFound) {
			s.logger.Debug("dropping stale session index entry")
			s.client.SRem(ctx, s.indexKey(), token)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Close implements Store.Close
func (s *RedisStore) Close() error {
	return s.client.Close()
}
