// Package storage 生成图片的对象存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aiphoto/backend/config"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore 保存二进制对象并返回可公开访问的地址
type ObjectStore interface {
	Put(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// ObjectReader 按 key 读取对象，返回内容与 content-type
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// New 根据配置创建对象存储
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.PublicBaseURL)
	case "nats":
		return NewNATSStore(ctx, cfg.NATSURL, cfg.Bucket, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func publicURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key is empty")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key: %s", key)
	}
	return nil
}
