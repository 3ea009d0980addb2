package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"strings"

	"storefinder/internal/photos"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

const (
	// PhotoWidth is the width every stored photo is scaled to.
	PhotoWidth = 800
	// MaxPhotoSide caps either dimension of an uploaded image.
	MaxPhotoSide = 10000
)

var errBadFiletype = NewValidationError("Photo", "That filetype isn't allowed!")

// PhotoService validates uploaded photos, resizes them and hands them to storage.
type PhotoService struct {
	storage photos.Storage
	width   int
	logger  logrus.FieldLogger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(storage photos.Storage, logger logrus.FieldLogger) *PhotoService {
	return &PhotoService{
		storage: storage,
		width:   PhotoWidth,
		logger:  logger,
	}
}

// Accept picks the single photo from a request's files.
// No file yields nil with no error. Nothing is written here.
func (s *PhotoService) Accept(files []*multipart.FileHeader) (*multipart.FileHeader, error) {
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, NewValidationError("Photo", "Only one photo can be uploaded at a time")
	}

	file := files[0]
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return nil, errBadFiletype
	}
	return file, nil
}

// Store resizes the photo to PhotoWidth and saves it under a fresh unique
// name, which it returns. A nil file is a no-op returning "".
func (s *PhotoService) Store(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", nil
	}

	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, format, err := s.resize(f)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s.%s", uuid.New().String(), format)
	if err := s.storage.Save(ctx, name, data, "image/"+format); err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"photo": name, "bytes": len(data)}).Debug("photo stored")
	return name, nil
}

// Discard removes a photo saved by Store whose listing was never written.
func (s *PhotoService) Discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.storage.Delete(ctx, name); err != nil {
		s.logger.WithError(err).WithField("photo", name).Warn("failed to discard photo")
	}
}

// resize decodes r, scales it to the configured width keeping the aspect
// ratio and re-encodes it in its original format. The header is checked
// before the pixels are decoded so empty or huge images never allocate.
func (s *PhotoService) resize(r io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errBadFiletype
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.Width > MaxPhotoSide || cfg.Height > MaxPhotoSide {
		return nil, "", errBadFiletype
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errBadFiletype
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, "", errBadFiletype
	}

	height := b.Dy() * s.width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, s.width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		return nil, "", errBadFiletype
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s photo: %w", format, err)
	}
	return buf.Bytes(), format, nil
}

// Open streams a stored photo. Unknown names map to ErrNotFound.
func (s *PhotoService) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	rc, err := s.storage.Open(ctx, name)
	if err != nil {
		if errors.Is(err, photos.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open photo %s: %w", name, err)
	}
	return rc, mime.TypeByExtension(path.Ext(name)), nil
}
