package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"k8s.io/klog/v2"
)

// NATSStore 基于 JetStream ObjectStore 的存储
type NATSStore struct {
	conn    *nats.Conn
	store   jetstream.ObjectStore
	baseURL string
}

// NewNATSStore 连接 NATS 并创建（或更新）对象桶
func NewNATSStore(ctx context.Context, url, bucket, baseURL string) (*NATSStore, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("aiphoto-backend"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	store, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "generated template images",
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create object store %s: %w", bucket, err)
	}
	klog.V(6).Infof("[Storage] NATS 对象桶就绪: url=%s, bucket=%s", url, bucket)
	return &NATSStore{conn: conn, store: store, baseURL: baseURL}, nil
}

func (s *NATSStore) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	info, err := s.store.Put(ctx, jetstream.ObjectMeta{
		Name:     key,
		Metadata: map[string]string{"content-type": contentType},
	}, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	klog.V(6).Infof("[Storage] NATS 写入对象: key=%s, size=%d", key, info.Size)
	return publicURL(s.baseURL, key), nil
}

// Get 读取对象内容，供静态访问使用
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := validKey(key); err != nil {
		return nil, "", err
	}
	info, err := s.store.GetInfo(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", err
	}
	data, err := s.store.GetBytes(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, info.Metadata["content-type"], nil
}

// Close 断开 NATS 连接
func (s *NATSStore) Close() {
	if s.conn != nil {
		s.conn.Drain()
	}
}
