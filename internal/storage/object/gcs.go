package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	pkgerrors "planet-ai/pkg/errors"
)

// GCSConfig GCS 存储配置
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// GCSStore Google Cloud Storage 实现；写入带 DoesNotExist 前置条件
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	// openWriter 默认为 gcsWriter
	openWriter func(ctx context.Context, key string, metadata map[string]string) objectWriter
}

// objectWriter *storage.Writer 用到的子集；ctx 取消后 Close 不提交对象
type objectWriter interface {
	io.Writer
	Close() error
}

// NewGCSStore 创建 GCS 存储；未指定凭据文件时使用 ADC
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs: bucket 未配置")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	s := &GCSStore{client: client, bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket}
	s.openWriter = s.gcsWriter
	return s, nil
}

func (s *GCSStore) gcsWriter(ctx context.Context, key string, metadata map[string]string) objectWriter {
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if ct, ok := metadata[MetaContentType]; ok {
		w.ContentType = ct
	}
	w.Metadata = metadata
	return w
}

// URL 返回 https://storage.googleapis.com/<bucket>/<key>
func (s *GCSStore) URL(key string) string {
	return "https://storage.googleapis.com/" + s.name + "/" + key
}

// Put 条件写入；对象已存在（412）时返回 ErrExists
func (s *GCSStore) Put(ctx context.Context, key string, data io.Reader, size int64, metadata map[string]string) (string, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.openWriter(wctx, key, metadata)

	if _, err := io.Copy(w, data); err != nil {
		// 先取消再 Close，中止上传而不是提交已写入的部分
		cancel()
		_ = w.Close()
		return "", s.writeError(key, err)
	}
	if err := w.Close(); err != nil {
		return "", s.writeError(key, err)
	}
	return s.URL(key), nil
}

func (s *GCSStore) writeError(key string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	return fmt.Errorf("gcs: write %s: %w", key, err)
}

// Get 下载对象
func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "object %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	return r, nil
}

// Delete 删除对象
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return pkgerrors.Wrapf(pkgerrors.ErrNotFound, "object %s", key)
	}
	if err != nil {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return nil
}

// List 列出前缀下的对象
func (s *GCSStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var results []*ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", prefix, err)
		}
		results = append(results, &ObjectInfo{
			Key:       attrs.Name,
			URL:       s.URL(attrs.Name),
			Size:      attrs.Size,
			Metadata:  attrs.Metadata,
			CreatedAt: attrs.Created,
		})
	}
	return results, nil
}

// Exists 检查对象是否存在
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gcs: attrs %s: %w", key, err)
	}
	return true, nil
}

// Close 关闭客户端
func (s *GCSStore) Close() error {
	return s.client.Close()
}
