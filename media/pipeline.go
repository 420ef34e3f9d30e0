// Package media stores post cover images in object storage.
package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/blogly/blogly/utils"
)

// ErrUnreadableImage is returned when an upload is not a decodable image.
var ErrUnreadableImage = utils.NewValidation(40010, "Please upload a valid image file (jpeg, png, gif or webp)")

// ObjectStore is the blob backend covers are written to.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Pipeline turns uploads into resized covers and hands out read URLs for them.
type Pipeline struct {
	store ObjectStore
	ttl   time.Duration
	log   *zap.Logger
}

func NewPipeline(store ObjectStore, urlTTL time.Duration, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{store: store, ttl: urlTTL, log: log}
}

// Upload resizes the image read from r and stores it under a fresh random key.
func (p *Pipeline) Upload(ctx context.Context, r io.Reader) (string, error) {
	body, err := decodeCover(r)
	if err != nil {
		return "", ErrUnreadableImage.Wrap(err)
	}
	key, err := RandomKey()
	if err != nil {
		return "", err
	}
	if err := p.store.PutObject(ctx, key, body, "image/jpeg"); err != nil {
		return "", fmt.Errorf("put cover %s: %w", key, err)
	}
	p.log.Debug("cover stored", zap.String("key", key), zap.Int("bytes", len(body)))
	return key, nil
}

func (p *Pipeline) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := p.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete cover %s: %w", key, err)
	}
	return nil
}

// URL returns a time-limited read URL for key. An empty key yields "".
func (p *Pipeline) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return p.store.PresignGet(ctx, key, p.ttl)
}

// RandomKey returns 64 hex characters drawn from crypto/rand.
func RandomKey() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
