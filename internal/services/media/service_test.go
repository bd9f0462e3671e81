package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeStorage struct {
	objects map[string]int64
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]int64)}
}

func (f *fakeStorage) EnsureBucket(context.Context) error { return nil }

func (f *fakeStorage) PutObject(_ context.Context, key string, _ io.Reader, size int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = size
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example/" + key + "?sig=abc", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func TestUploadBuildsKindScopedKey(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage)

	up, err := svc.Upload(context.Background(), KindSubmission, 42, "final.PSD", "image/vnd.adobe.photoshop", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(up.Key, "submissions/42/") || !strings.HasSuffix(up.Key, ".psd") {
		t.Fatalf("key = %q", up.Key)
	}
	if !strings.Contains(up.URL, up.Key) {
		t.Fatalf("url %q does not reference key %q", up.URL, up.Key)
	}
	if _, ok := storage.objects[up.Key]; !ok {
		t.Fatal("object was not stored")
	}
}

func TestUploadRejectsTypeAndSize(t *testing.T) {
	svc := NewService(newFakeStorage())

	if _, err := svc.Upload(context.Background(), KindAvatar, 1, "virus.exe", "", strings.NewReader("x"), 1); !errors.Is(err, ErrBadFileType) {
		t.Fatalf("exe avatar error = %v, want ErrBadFileType", err)
	}
	if _, err := svc.Upload(context.Background(), KindAvatar, 1, "huge.png", "", strings.NewReader("x"), 6<<20); !errors.Is(err, ErrFileTooBig) {
		t.Fatalf("oversized avatar error = %v, want ErrFileTooBig", err)
	}
	if _, err := svc.Upload(context.Background(), Kind("bogus"), 1, "a.png", "", strings.NewReader("x"), 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown kind error = %v, want ErrValidation", err)
	}
}

func TestDownloadURLRequiresKey(t *testing.T) {
	svc := NewService(newFakeStorage())

	if _, err := svc.DownloadURL(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty key error = %v, want ErrValidation", err)
	}
	url, err := svc.DownloadURL(context.Background(), "lessons/1/file.pdf")
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(url, "lessons/1/file.pdf") {
		t.Fatalf("url = %q", url)
	}
}
