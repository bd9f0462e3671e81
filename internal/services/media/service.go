package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrValidation  = errors.New("media validation error")
	ErrFileTooBig  = errors.New("file exceeds the size limit")
	ErrBadFileType = errors.New("file type not allowed")
)

const signedURLTTL = 15 * time.Minute

// Kind decides the object key prefix, size limit and allowed
// extensions for an upload.
type Kind string

const (
	KindLessonMaterial Kind = "lesson_material"
	KindSubmission     Kind = "submission"
	KindAvatar         Kind = "avatar"
)

type kindPolicy struct {
	prefix  string
	maxSize int64
	exts    map[string]bool
}

var policies = map[Kind]kindPolicy{
	KindLessonMaterial: {
		prefix:  "lessons",
		maxSize: 500 << 20,
		exts: map[string]bool{
			".pdf": true, ".zip": true, ".mp4": true, ".mov": true,
			".jpg": true, ".jpeg": true, ".png": true, ".raw": true,
			".psd": true, ".dng": true,
		},
	},
	KindSubmission: {
		prefix:  "submissions",
		maxSize: 200 << 20,
		exts: map[string]bool{
			".pdf": true, ".zip": true, ".jpg": true, ".jpeg": true,
			".png": true, ".tiff": true, ".psd": true, ".dng": true,
		},
	},
	KindAvatar: {
		prefix:  "avatars",
		maxSize: 5 << 20,
		exts:    map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true},
	},
}

// ObjectStorage is the minio-backed blob store.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	storage ObjectStorage
	now     func() time.Time
}

func NewService(storage ObjectStorage) *Service {
	return &Service{
		storage: storage,
		now:     time.Now,
	}
}

// Upload streams the file to object storage and returns the stored
// key plus a short-lived download URL. The caller persists the key on
// the owning row (lesson, submission, user).
type Upload struct {
	Key string
	URL string
}

func (s *Service) Upload(ctx context.Context, kind Kind, ownerID int64, fileName, contentType string, body io.Reader, size int64) (Upload, error) {
	if s.storage == nil {
		return Upload{}, fmt.Errorf("object storage is not configured")
	}
	policy, ok := policies[kind]
	if !ok {
		return Upload{}, fmt.Errorf("unknown upload kind %q: %w", kind, ErrValidation)
	}
	if ownerID <= 0 || body == nil || size <= 0 {
		return Upload{}, fmt.Errorf("invalid upload payload: %w", ErrValidation)
	}
	if size > policy.maxSize {
		return Upload{}, fmt.Errorf("%d bytes over %d: %w", size, policy.maxSize, ErrFileTooBig)
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if !policy.exts[ext] {
		return Upload{}, fmt.Errorf("extension %q: %w", ext, ErrBadFileType)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Upload{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := s.buildObjectKey(policy.prefix, ownerID, ext)
	if err != nil {
		return Upload{}, fmt.Errorf("build object key: %w", err)
	}
	if err := s.storage.PutObject(ctx, key, body, size, contentType); err != nil {
		return Upload{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return Upload{}, fmt.Errorf("presign url: %w", err)
	}
	return Upload{Key: key, URL: url}, nil
}

// DownloadURL presigns a GET for a stored key.
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty object key: %w", ErrValidation)
	}
	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return url, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if s.storage == nil {
		return fmt.Errorf("object storage is not configured")
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *Service) buildObjectKey(prefix string, ownerID int64, ext string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}
	stamp := s.now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%d/%s_%s%s", prefix, ownerID, stamp, hex.EncodeToString(rnd), ext), nil
}
