package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/vaughan-dsouza/BeSocial/internal/config"
)

type Cloudinary struct {
	cld *cloudinary.Cloudinary
	now func() time.Time
}

func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.URL != "" {
		cld, err = cloudinary.NewFromURL(cfg.URL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("media: cloudinary config: %w", err)
	}
	return &Cloudinary{cld: cld, now: time.Now}, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

func (c *Cloudinary) Upload(ctx context.Context, folder string, f File) (Image, error) {
	if f.Body == nil {
		return Image{}, ErrEmptyFile
	}

	res, err := c.cld.Upload.Upload(ctx, f.Body, uploader.UploadParams{
		Folder:   folder,
		PublicID: ObjectName(f.Name, c.now()),
	})
	if err != nil {
		return Image{}, fmt.Errorf("media: cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Image{}, fmt.Errorf("media: cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return Image{}, errors.New("media: cloudinary upload returned no URL")
	}
	return Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("media: cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("media: cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}
