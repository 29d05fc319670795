package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"
)

// LocalStore 将对象写入本地目录。内容不对外直接暴露，只能通过带归属校验的 API 读取。
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore 以 dir 为根目录构造本地存储。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return NewLocalStoreWithFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewLocalStoreWithFs 使用给定的文件系统构造本地存储，测试中传入内存文件系统。
func NewLocalStoreWithFs(fs afero.Fs) *LocalStore {
	return &LocalStore{fs: fs}
}

// UploadFile 写入对象，已存在时覆盖。
func (s *LocalStore) UploadFile(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) error {
	if err := ValidateKey(objectKey); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(objectKey), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", objectKey, err)
	}
	if err := afero.WriteReader(s.fs, objectKey, reader); err != nil {
		return fmt.Errorf("write object %q: %w", objectKey, err)
	}
	return nil
}

// DeleteObject 删除对象；对象不存在视为成功。
func (s *LocalStore) DeleteObject(_ context.Context, objectKey string) error {
	if err := ValidateKey(objectKey); err != nil {
		return err
	}
	if err := s.fs.Remove(objectKey); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object %q: %w", objectKey, err)
	}
	return nil
}

// ObjectURL 本地存储没有可直接访问的地址，始终返回 ErrNoDirectURL。
func (s *LocalStore) ObjectURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if err := ValidateKey(objectKey); err != nil {
		return "", err
	}
	return "", ErrNoDirectURL
}

// OpenObject 打开对象内容；目录一律视为不存在。
func (s *LocalStore) OpenObject(_ context.Context, objectKey string) (io.ReadCloser, int64, error) {
	if err := ValidateKey(objectKey); err != nil {
		return nil, 0, err
	}
	info, err := s.fs.Stat(objectKey)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	if info.IsDir() {
		return nil, 0, ErrObjectNotFound
	}
	f, err := s.fs.Open(objectKey)
	if err != nil {
		return nil, 0, fmt.Errorf("open object %q: %w", objectKey, err)
	}
	return f, info.Size(), nil
}
