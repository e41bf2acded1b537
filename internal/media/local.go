package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes uploads into the directory served under urlPrefix.
// Folders are flattened: the public ID is the file name.
type Local struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create assets dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Upload(_ context.Context, _ string, f File) (Image, error) {
	if f.Body == nil {
		return Image{}, ErrEmptyFile
	}

	name := ObjectName(f.Name, l.now())
	out, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Image{}, fmt.Errorf("media: create file: %w", err)
	}

	n, err := io.Copy(out, f.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.dir, name))
		return Image{}, fmt.Errorf("media: write file: %w", err)
	}

	return Image{URL: l.urlPrefix + "/" + url.PathEscape(name), PublicID: name}, nil
}

func (l *Local) Delete(_ context.Context, publicID string) error {
	name := filepath.Base(publicID)
	if name != publicID || name == "." || name == ".." {
		return fmt.Errorf("media: invalid public id %q", publicID)
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
