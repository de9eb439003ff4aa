package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/recipebox/internal/domain"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/storage"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxImageDimension = 1200
	defaultJPEGQuality       = 85
	imageKeyPrefix           = "uploads/"

	// maxImagePixels caps the canvas an image header may declare.
	maxImagePixels = 50_000_000
)

// ImageFetcher downloads, transcodes and stores recipe images.
type ImageFetcher interface {
	FetchAll(ctx context.Context, refs []domain.ImageRef) []domain.DownloadedImage
}

// ImageConfig holds configuration for the image service.
type ImageConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxDimension int
	Quality      int
	MaxBytes     int64
}

// ImageService fetches source images and rewrites them as bounded JPEGs in content storage.
type ImageService struct {
	client   *resty.Client
	storage  storage.ObjectStorage
	maxDim   int
	quality  int
	maxBytes int64
}

// NewImageService creates a new image service.
// Parameters:
//   - objectStorage: content store the transcoded images are written to.
//   - cfg: fetch and transcode settings; zero values take the defaults.
// Returns:
//   - *ImageService: initialized service.
func NewImageService(objectStorage storage.ObjectStorage, cfg *ImageConfig) *ImageService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = defaultMaxImageDimension
	}
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	return &ImageService{
		client:   newHTTPClient(cfg.UserAgent, timeout),
		storage:  objectStorage,
		maxDim:   maxDim,
		quality:  quality,
		maxBytes: cfg.MaxBytes,
	}
}

// FetchAll downloads every image concurrently and returns the ones that succeeded,
// in the order they were requested. Failures are logged and dropped.
func (s *ImageService) FetchAll(ctx context.Context, refs []domain.ImageRef) []domain.DownloadedImage {
	if len(refs) == 0 {
		return []domain.DownloadedImage{}
	}

	results := make([]*domain.DownloadedImage, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref domain.ImageRef) {
			defer wg.Done()
			img, err := s.Fetch(ctx, ref)
			if err != nil {
				logger.FromContext(ctx).WithField("image_url", ref.URL).WithError(err).Warn("Dropping image")
				return
			}
			results[i] = img
		}(i, ref)
	}
	wg.Wait()

	out := make([]domain.DownloadedImage, 0, len(refs))
	for _, img := range results {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out
}

// Fetch downloads one image, transcodes it and writes it under a key derived from its URL.
// Repeated fetches of the same URL overwrite the same object.
func (s *ImageService) Fetch(ctx context.Context, ref domain.ImageRef) (*domain.DownloadedImage, error) {
	data, err := get(ctx, s.client, ref.URL, s.maxBytes)
	if err != nil {
		return nil, err
	}

	encoded, err := Transcode(data, s.maxDim, s.quality)
	if err != nil {
		return nil, fmt.Errorf("transcode %s: %w", ref.URL, err)
	}

	key := imageKey(ref.URL)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), "image/jpeg"); err != nil {
		return nil, fmt.Errorf("store %s: %w", ref.URL, err)
	}

	return &domain.DownloadedImage{
		OriginalURL: ref.URL,
		LocalPath:   s.storage.GetURL(key),
		Alt:         ref.Alt,
	}, nil
}

// Transcode decodes a JPEG, PNG, GIF or WebP image, fits it within maxDim on both
// sides without upscaling, and encodes it as JPEG at the given quality.
func Transcode(data []byte, maxDim, quality int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)

	// JPEG has no alpha; flatten onto white
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales w×h down to fit a max×max box, keeping the aspect ratio.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

func imageKey(url string) string {
	sum := md5.Sum([]byte(url))
	return imageKeyPrefix + hex.EncodeToString(sum[:]) + ".jpg"
}
