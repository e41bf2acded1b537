// Package media uploads user pictures to an image host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vaughan-dsouza/BeSocial/internal/config"
)

// File is an upload as received from the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Image is where an uploaded file ended up.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type Store interface {
	// Upload stores f under folder and returns its public location.
	Upload(ctx context.Context, folder string, f File) (Image, error)
	Delete(ctx context.Context, publicID string) error
	Name() string
}

var ErrEmptyFile = errors.New("media: empty file")

// ObjectName builds "<unix millis>-<base name>".
func ObjectName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == '?', r == '#', r == '%':
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

// New picks the backend from configuration: Cloudinary, then S3/MinIO,
// otherwise the local assets directory.
func New(ctx context.Context, cfg config.UploadConfig) (Store, error) {
	switch {
	case cfg.Cloudinary.Enabled():
		return NewCloudinary(cfg.Cloudinary)
	case cfg.S3.Enabled():
		return NewMinio(ctx, cfg.S3)
	default:
		return NewLocal(cfg.AssetsDir, "/assets")
	}
}
