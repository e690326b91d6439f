// Package imaging shrinks uploaded recipe photos to a bounded JPEG.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/and161185/recipebox/internal/errs"
)

// Pass is one compression attempt: fit within MaxDim pixels, encode at Quality.
type Pass struct {
	MaxDim  int
	Quality int
}

// MaxBytes is the size target. A first result above it gets one more pass.
const MaxBytes = 2 << 20

var (
	firstPass  = Pass{MaxDim: 1920, Quality: 85}
	secondPass = Pass{MaxDim: 1280, Quality: 70}
)

// Compressor re-encodes images as JPEG in at most two passes.
type Compressor struct {
	log    *zap.Logger
	limit  int
	passes [2]Pass
}

// New returns a compressor with the standard passes.
func New(log *zap.Logger) *Compressor {
	return &Compressor{log: log, limit: MaxBytes, passes: [2]Pass{firstPass, secondPass}}
}

// Compress decodes src (JPEG, PNG, GIF or WebP) and returns a JPEG. The
// result of the last pass is returned even if it is still above MaxBytes.
// Every failure is reported as errs.ErrCompressionFailed.
func (c *Compressor) Compress(ctx context.Context, src []byte) ([]byte, error) {
	out, err := c.compress(ctx, src)
	if err != nil {
		c.log.Warn("image compression failed", zap.Int("input_bytes", len(src)), zap.Error(err))
		return nil, errs.ErrCompressionFailed
	}
	return out, nil
}

func (c *Compressor) compress(ctx context.Context, src []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := encode(img, c.passes[0])
	if err != nil {
		return nil, fmt.Errorf("first pass: %w", err)
	}
	if len(out) <= c.limit {
		return out, nil
	}
	c.log.Debug("image above size target, second pass",
		zap.String("format", format), zap.Int("bytes", len(out)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err = encode(img, c.passes[1])
	if err != nil {
		return nil, fmt.Errorf("second pass: %w", err)
	}
	return out, nil
}

func encode(img image.Image, p Pass) ([]byte, error) {
	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), p.MaxDim)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; transparent pixels end up on white.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit scales (w, h) down to fit a box x box square, keeping the aspect ratio.
// Images already inside the box keep their size.
func fit(w, h, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		return box, atLeastOne(h * box / w)
	}
	return atLeastOne(w * box / h), box
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
