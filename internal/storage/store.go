package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrInvalidKey 表示对象 Key 不合法（为空、包含 .. 或以 / 开头）。
	ErrInvalidKey = errors.New("invalid object key")
	// ErrObjectNotFound 表示对象不存在，或 Key 指向的是目录。
	ErrObjectNotFound = errors.New("object not found")
	// ErrNoDirectURL 表示后端无法签发直链，内容只能经 API 读取。
	ErrNoDirectURL = errors.New("object store has no direct url")
)

// ObjectStore 是上传文件的存储后端，MinIO 与本地文件系统各有一个实现。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
	ObjectURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	OpenObject(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
}

// ValidateKey 校验对象 Key，拒绝路径穿越与绝对路径。
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 512 {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
