package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vaughan-dsouza/BeSocial/internal/config"
)

type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}

func NewMinio(ctx context.Context, cfg config.S3Config) (*Minio, error) {
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("media: s3 endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("media: s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("media: s3 bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("media: s3 bucket does not exist: %s", cfg.Bucket)
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	return &Minio{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		now:       time.Now,
	}, nil
}

func (m *Minio) Name() string { return "s3" }

func (m *Minio) Upload(ctx context.Context, folder string, f File) (Image, error) {
	if f.Body == nil {
		return Image{}, ErrEmptyFile
	}

	key := objectKey(folder, ObjectName(f.Name, m.now()))
	size := f.Size
	if size <= 0 {
		size = -1
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, f.Body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Image{}, fmt.Errorf("media: s3 put: %w", err)
	}
	return Image{URL: m.publicURL + "/" + escapeKey(key), PublicID: key}, nil
}

func (m *Minio) Delete(ctx context.Context, publicID string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("media: s3 remove: %w", err)
	}
	return nil
}

func objectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
