package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewLocalStoreWithFs(fs)

	key := "user-files/7/clip.mp4"
	if err := store.UploadFile(ctx, key, strings.NewReader("frames"), 6, "video/mp4"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, size, err := store.OpenObject(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(data) != "frames" || size != 6 {
		t.Fatalf("unexpected content %q size=%d err=%v", data, size, err)
	}

	if _, err := store.ObjectURL(ctx, key, time.Minute); !errors.Is(err, ErrNoDirectURL) {
		t.Fatalf("local store must not hand out direct urls, got %v", err)
	}

	if err := store.DeleteObject(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := afero.Exists(fs, key); exists {
		t.Fatalf("object still present after delete")
	}
	if err := store.DeleteObject(ctx, key); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	if _, _, err := store.OpenObject(ctx, key); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound after delete, got %v", err)
	}
}

func TestLocalStoreOpenRefusesDirectories(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStoreWithFs(afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()))
	if err := store.UploadFile(ctx, "files/7/contract.pdf", strings.NewReader("contract of user 7"), 18, "application/pdf"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	for _, key := range []string{"files", "files/7"} {
		if _, _, err := store.OpenObject(ctx, key); !errors.Is(err, ErrObjectNotFound) {
			t.Fatalf("key %q: expected ErrObjectNotFound for a directory, got %v", key, err)
		}
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := NewLocalStoreWithFs(afero.NewMemMapFs())
	for _, key := range []string{"", "../etc/passwd", "/abs/file", "a//b", "a/./b", `a\b`} {
		err := store.UploadFile(context.Background(), key, strings.NewReader("x"), 1, "text/plain")
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
		if _, _, err := store.OpenObject(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("open %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}
