package imagegen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

const (
	maxEdge     = 1024
	jpegQuality = 90
)

// NormalizeToDataURI decodes arbitrary image bytes, downsamples so the longest
// edge is at most 1024px without changing the aspect ratio, flattens any alpha
// onto a white background and re-encodes the result as a JPEG data URI. The
// target APIs only accept flat RGB input.
func NormalizeToDataURI(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	flat := resampleRGB(img, maxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resampleRGB scales img so its longest edge fits within limit and composites
// every pixel over white, discarding alpha. Nearest-neighbor sampling is
// sufficient here: the output is consumed by generative models, not displayed.
func resampleRGB(img image.Image, limit int) *image.RGBA {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dstW, dstH := srcW, srcH
	if srcW > limit || srcH > limit {
		if srcW >= srcH {
			dstW = limit
			dstH = srcH * limit / srcW
		} else {
			dstH = limit
			dstW = srcW * limit / srcH
		}
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		srcY := bounds.Min.Y + y*srcH/dstH
		for x := 0; x < dstW; x++ {
			srcX := bounds.Min.X + x*srcW/dstW
			r, g, b, a := img.At(srcX, srcY).RGBA()
			// Premultiplied components composited over a white background.
			inv := 0xffff - a
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(clamp16(r+inv) >> 8),
				G: uint8(clamp16(g+inv) >> 8),
				B: uint8(clamp16(b+inv) >> 8),
				A: 0xff,
			})
		}
	}
	return dst
}

func clamp16(v uint32) uint32 {
	if v > 0xffff {
		return 0xffff
	}
	return v
}
