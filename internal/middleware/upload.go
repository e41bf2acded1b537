package middleware

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

// UploadFailed is the body of every upload error response.
const UploadFailed = "File upload failed."

type uploadKey struct{}

// UploadedImage returns the image stored by SingleUpload, if any.
func UploadedImage(ctx context.Context) (media.Image, bool) {
	img, ok := ctx.Value(uploadKey{}).(media.Image)
	return img, ok
}

// WithUploadedImage stores img as if SingleUpload had uploaded it.
func WithUploadedImage(ctx context.Context, img media.Image) context.Context {
	return context.WithValue(ctx, uploadKey{}, img)
}

type UploadOptions struct {
	Store  media.Store
	Folder string
	Field  string
	// MaxMemory is the multipart memory threshold; larger parts spill to disk.
	MaxMemory int64
	// Required rejects requests without a file in Field.
	Required bool
}

// SingleUpload parses a multipart form, uploads the file in opts.Field to the
// image store and exposes the result through UploadedImage. Other form values
// stay available through r.FormValue. Non-multipart requests pass through
// untouched unless a file is required. When the next handler answers with an
// error status the uploaded image is deleted again.
func SingleUpload(opts UploadOptions) func(http.Handler) http.Handler {
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = 32 << 20
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "multipart/form-data" {
				if opts.Required {
					utils.JSONMessage(w, http.StatusBadRequest, UploadFailed)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseMultipartForm(opts.MaxMemory); err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					utils.JSONMessage(w, http.StatusRequestEntityTooLarge, "File too large.")
					return
				}
				log.Warn().Err(err).Msg("bad multipart form")
				utils.JSONMessage(w, http.StatusBadRequest, UploadFailed)
				return
			}
			defer func() { _ = r.MultipartForm.RemoveAll() }()

			file, header, err := r.FormFile(opts.Field)
			if errors.Is(err, http.ErrMissingFile) {
				if opts.Required {
					utils.JSONMessage(w, http.StatusBadRequest, UploadFailed)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				utils.JSONMessage(w, http.StatusBadRequest, UploadFailed)
				return
			}
			defer file.Close()

			img, err := opts.Store.Upload(r.Context(), opts.Folder, media.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			})
			if err != nil {
				log.Error().Err(err).
					Str("backend", opts.Store.Name()).
					Str("file", header.Filename).
					Msg("upload failed")
				utils.JSONMessage(w, http.StatusBadRequest, UploadFailed)
				return
			}

			log.Debug().Str("url", img.URL).Str("public_id", img.PublicID).Msg("file uploaded")

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithUploadedImage(r.Context(), img)))
			if ww.Status() >= http.StatusBadRequest {
				discardUpload(r.Context(), opts.Store, img, ww.Status())
			}
		})
	}
}

// discardUpload removes an image whose request failed. It outlives a
// cancelled request context.
func discardUpload(ctx context.Context, store media.Store, img media.Image, status int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := store.Delete(ctx, img.PublicID); err != nil {
		log.Warn().Err(err).
			Str("backend", store.Name()).
			Str("public_id", img.PublicID).
			Int("status", status).
			Msg("failed to delete upload of rejected request")
		return
	}
	log.Debug().Str("public_id", img.PublicID).Int("status", status).Msg("deleted upload of rejected request")
}
