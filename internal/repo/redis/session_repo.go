package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
)

const (
	sessKeyPrefix    = "auth:sess:"
	refreshKeyPrefix = "auth:refresh:"
	userSetKeyPrefix = "auth:user:"
)

// sessionDoc is the stored shape of one session. The refresh token
// lives inside the document, the refresh key only maps token to sid.
type sessionDoc struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	Refresh   string `json:"refresh"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionRepo keeps auth sessions in redis under three key families:
// auth:sess:<sid> holds the JSON session document, auth:refresh:<token>
// points back at the sid, auth:user:<id> is the set of the user's sids
// so a full logout can find them.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	doc := sessionDoc{
		UserID:    session.UserID,
		Role:      session.Role,
		Refresh:   refreshToken,
		ExpiresAt: session.ExpiresAt.Unix(),
	}
	return r.writeSession(ctx, session.SID, doc, nil)
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	doc, err := r.loadDoc(ctx, sid)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	return recordFromDoc(sid, doc), nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	sid, err := r.client.Get(ctx, refreshKeyPrefix+refreshToken).Result()
	if err == goredis.Nil {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("resolve refresh token: %w", err)
	}

	doc, err := r.loadDoc(ctx, sid)
	if err != nil {
		// Session is gone but the pointer survived, treat the
		// token as dead.
		if err == authsvc.ErrSessionNotFound {
			return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
		}
		return authsvc.SessionRecord{}, err
	}
	if doc.Refresh != refreshToken {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}

	return recordFromDoc(sid, doc), nil
}

// RotateRefresh swaps the refresh token in place and renews the session
// expiry, the old token stops resolving immediately.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	session, err := r.GetByRefreshToken(ctx, oldRefreshToken)
	if err != nil {
		return err
	}
	if sid != "" && sid != session.SID {
		return authsvc.ErrRefreshNotFound
	}

	doc := sessionDoc{
		UserID:    session.UserID,
		Role:      session.Role,
		Refresh:   newRefreshToken,
		ExpiresAt: expiresAt.Unix(),
	}
	staleRefresh := oldRefreshToken
	return r.writeSession(ctx, session.SID, doc, &staleRefresh)
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	doc, err := r.loadDoc(ctx, sid)
	if err != nil && err != authsvc.ErrSessionNotFound {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessKeyPrefix+sid)
	if doc.Refresh != "" {
		pipe.Del(ctx, refreshKeyPrefix+doc.Refresh)
	}
	if doc.UserID > 0 {
		pipe.SRem(ctx, userSetKeyPrefix+strconv.FormatInt(doc.UserID, 10), sid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return authsvc.ErrInvalidInput
	}

	setKey := userSetKeyPrefix + strconv.FormatInt(userID, 10)
	sids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, setKey).Err(); err != nil {
		return fmt.Errorf("delete user session set: %w", err)
	}
	return nil
}

// writeSession persists the document and keeps the refresh pointer and
// user set in step, dropping staleRefresh when a rotation replaced it.
func (r *SessionRepo) writeSession(ctx context.Context, sid string, doc sessionDoc, staleRefresh *string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ttl := time.Until(time.Unix(doc.ExpiresAt, 0))
	if ttl <= 0 {
		ttl = time.Second
	}
	setKey := userSetKeyPrefix + strconv.FormatInt(doc.UserID, 10)

	pipe := r.client.TxPipeline()
	if staleRefresh != nil && *staleRefresh != "" {
		pipe.Del(ctx, refreshKeyPrefix+*staleRefresh)
	}
	pipe.Set(ctx, sessKeyPrefix+sid, raw, ttl)
	pipe.Set(ctx, refreshKeyPrefix+doc.Refresh, sid, ttl)
	pipe.SAdd(ctx, setKey, sid)
	pipe.Expire(ctx, setKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (r *SessionRepo) loadDoc(ctx context.Context, sid string) (sessionDoc, error) {
	raw, err := r.client.Get(ctx, sessKeyPrefix+sid).Bytes()
	if err == goredis.Nil {
		return sessionDoc{}, authsvc.ErrSessionNotFound
	}
	if err != nil {
		return sessionDoc{}, fmt.Errorf("get session: %w", err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil || doc.UserID <= 0 {
		// Corrupt entry, drop it and force a re-login.
		_ = r.client.Del(ctx, sessKeyPrefix+sid).Err()
		return sessionDoc{}, authsvc.ErrSessionNotFound
	}
	return doc, nil
}

func recordFromDoc(sid string, doc sessionDoc) authsvc.SessionRecord {
	return authsvc.SessionRecord{
		SID:       sid,
		UserID:    doc.UserID,
		Role:      doc.Role,
		ExpiresAt: time.Unix(doc.ExpiresAt, 0).UTC(),
	}
}
