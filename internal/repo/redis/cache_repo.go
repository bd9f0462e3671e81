package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

const (
	catalogKey      = "catalog:published"
	coursePrefix    = "catalog:course:"
	defaultCacheTTL = 5 * time.Minute
)

// CatalogCacheRepo caches the public course catalog. Misses return
// (zero, false, nil) so callers fall through to postgres.
type CatalogCacheRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewCatalogCacheRepo(client *goredis.Client, ttl time.Duration) *CatalogCacheRepo {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CatalogCacheRepo{client: client, ttl: ttl}
}

func (r *CatalogCacheRepo) GetPublished(ctx context.Context) ([]model.Course, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, catalogKey).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached catalog: %w", err)
	}

	var courses []model.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		// Stale or corrupt entry, drop it and treat as a miss.
		_ = r.client.Del(ctx, catalogKey).Err()
		return nil, false, nil
	}

	return courses, true, nil
}

func (r *CatalogCacheRepo) SetPublished(ctx context.Context, courses []model.Course) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := r.client.Set(ctx, catalogKey, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached catalog: %w", err)
	}

	return nil
}

func (r *CatalogCacheRepo) GetCourse(ctx context.Context, courseID int64) (model.Course, bool, error) {
	if r.client == nil {
		return model.Course{}, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, courseKey(courseID)).Bytes()
	if err == goredis.Nil {
		return model.Course{}, false, nil
	}
	if err != nil {
		return model.Course{}, false, fmt.Errorf("get cached course: %w", err)
	}

	var course model.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		_ = r.client.Del(ctx, courseKey(courseID)).Err()
		return model.Course{}, false, nil
	}

	return course, true, nil
}

func (r *CatalogCacheRepo) SetCourse(ctx context.Context, course model.Course) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}
	if err := r.client.Set(ctx, courseKey(course.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached course: %w", err)
	}

	return nil
}

// Invalidate clears the catalog and one course entry after any write
// that changes what the public listing shows.
func (r *CatalogCacheRepo) Invalidate(ctx context.Context, courseID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	keys := []string{catalogKey}
	if courseID > 0 {
		keys = append(keys, courseKey(courseID))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}

	return nil
}

func courseKey(courseID int64) string {
	return coursePrefix + strconv.FormatInt(courseID, 10)
}
