// Package qrcode renders connection URIs as PNG data URLs that can be placed
// straight into an <img> tag. Encoding is done by github.com/skip2/go-qrcode.
package qrcode

import (
	"context"
	"encoding/base64"

	qr "github.com/skip2/go-qrcode"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

const (
	// DataURLPrefix starts every encoded image.
	DataURLPrefix = "data:image/png;base64,"
	DefaultSize   = 256
)

// Cache stores encoded images by uri. Misses return ok == false.
type Cache interface {
	Get(ctx context.Context, uri string) (dataURL string, ok bool, err error)
	Set(ctx context.Context, uri, dataURL string) error
}

type Encoder struct {
	size  int
	level qr.RecoveryLevel
	cache Cache
}

type Option func(*Encoder)

// WithSize sets the image width and height in pixels.
func WithSize(px int) Option {
	return func(e *Encoder) {
		if px > 0 {
			e.size = px
		}
	}
}

func WithRecoveryLevel(level qr.RecoveryLevel) Option {
	return func(e *Encoder) {
		e.level = level
	}
}

func WithCache(c Cache) Option {
	return func(e *Encoder) {
		e.cache = c
	}
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{size: DefaultSize, level: qr.Medium}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncodeConnectionURI encodes uri as-is. Encoder failures, e.g. empty or
// oversized content, are logged and returned; no placeholder image is produced.
func (e *Encoder) EncodeConnectionURI(ctx context.Context, uri string) (string, error) {
	if e.cache != nil {
		dataURL, ok, err := e.cache.Get(ctx, uri)
		if err != nil {
			log.Warnf("qrcode - read cache:%v", err)
		} else if ok {
			return dataURL, nil
		}
	}
	png, err := qr.Encode(uri, e.level, e.size)
	if err != nil {
		log.Errorf("Error generating QR code:%v", err)
		return "", errors.Wrap(err, "encode connection uri qr code")
	}
	dataURL := DataURLPrefix + base64.StdEncoding.EncodeToString(png)
	if e.cache != nil {
		if err := e.cache.Set(ctx, uri, dataURL); err != nil {
			log.Warnf("qrcode - write cache:%v", err)
		}
	}
	return dataURL, nil
}

var defaultEncoder = NewEncoder()

// EncodeConnectionURI encodes uri with the default size and recovery level.
func EncodeConnectionURI(ctx context.Context, uri string) (string, error) {
	return defaultEncoder.EncodeConnectionURI(ctx, uri)
}
