package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/luongdev/rtcqos/pkg/stats"
)

const (
	// SessionKeyPrefix prefixes the hash holding a session's local capture and
	// update time.
	SessionKeyPrefix = "rtcqos:session:"

	// RemotesKeySuffix names the list of remote captures of a session.
	RemotesKeySuffix = ":remotes"

	fieldLocal     = "local"
	fieldUpdatedAt = "updated_at"
)

// RedisStore keeps captures in Redis: a hash per session plus a list of
// remote captures, both expiring together.
type RedisStore struct {
	rc  redis.UniversalClient
	now func() time.Time
}

// NewRedisStore wraps an existing client
func NewRedisStore(rc redis.UniversalClient) *RedisStore {
	return &RedisStore{rc: rc, now: time.Now}
}

// DialRedis connects to a single Redis node and verifies the connection
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, errors.Wrapf(err, "unable to connect to redis at %s", addr)
	}
	return NewRedisStore(rc), nil
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func remotesKey(id string) string {
	return SessionKeyPrefix + id + RemotesKeySuffix
}

func (s *RedisStore) expire(ctx context.Context, pp redis.Pipeliner, id string, ttl time.Duration) {
	if ttl > 0 {
		pp.Expire(ctx, sessionKey(id), ttl)
		pp.Expire(ctx, remotesKey(id), ttl)
	} else {
		pp.Persist(ctx, sessionKey(id))
		pp.Persist(ctx, remotesKey(id))
	}
}

func (s *RedisStore) SetLocal(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) error {
	data, err := json.Marshal(capture)
	if err != nil {
		return errors.Wrap(err, "could not encode capture")
	}

	pp := s.rc.TxPipeline()
	pp.HSet(ctx, sessionKey(sessionID), fieldLocal, data, fieldUpdatedAt, s.now().UnixNano())
	s.expire(ctx, pp, sessionID, ttl)
	if _, err := pp.Exec(ctx); err != nil {
		return errors.Wrap(err, "could not store local capture")
	}
	return nil
}

func (s *RedisStore) AppendRemote(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) (int, error) {
	data, err := json.Marshal(capture)
	if err != nil {
		return 0, errors.Wrap(err, "could not encode capture")
	}

	pp := s.rc.TxPipeline()
	push := pp.RPush(ctx, remotesKey(sessionID), data)
	pp.HSet(ctx, sessionKey(sessionID), fieldUpdatedAt, s.now().UnixNano())
	s.expire(ctx, pp, sessionID, ttl)
	if _, err := pp.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "could not append remote capture")
	}
	return int(push.Val()) - 1, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*SessionCaptures, error) {
	pp := s.rc.Pipeline()
	hash := pp.HGetAll(ctx, sessionKey(sessionID))
	list := pp.LRange(ctx, remotesKey(sessionID), 0, -1)
	if _, err := pp.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "could not load session")
	}

	fields := hash.Val()
	items := list.Val()
	if len(fields) == 0 && len(items) == 0 {
		return nil, ErrNotFound
	}

	sc := &SessionCaptures{SessionID: sessionID}
	if data, ok := fields[fieldLocal]; ok {
		sc.Local = &stats.RawCapture{}
		if err := json.Unmarshal([]byte(data), sc.Local); err != nil {
			return nil, errors.Wrap(err, "corrupt local capture")
		}
	}
	if ts, ok := fields[fieldUpdatedAt]; ok {
		if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
			sc.UpdatedAt = time.Unix(0, n)
		}
	}

	sc.Remotes = make([]*stats.RawCapture, 0, len(items))
	for i, data := range items {
		rc := &stats.RawCapture{}
		if err := json.Unmarshal([]byte(data), rc); err != nil {
			return nil, errors.Wrapf(err, "corrupt remote capture %d", i)
		}
		sc.Remotes = append(sc.Remotes, rc)
	}
	return sc, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rc.Del(ctx, sessionKey(sessionID), remotesKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "could not delete session")
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rc.Close()
}
