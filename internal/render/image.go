package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png" // register decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// passThroughImage wraps a single image as a one-page sequence,
// downscaling when either dimension exceeds the configured maximum.
func (r *Renderer) passThroughImage(data []byte, mimeType string) (*Page, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image (%s): %v", ErrRenderFailure, mimeType, err)
	}

	if cfg.Width <= r.maxImageDim && cfg.Height <= r.maxImageDim {
		return &Page{Index: 0, Image: data, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image for downscale: %v", ErrRenderFailure, err)
	}

	w, h := scaledDims(cfg.Width, cfg.Height, r.maxImageDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("%w: encoding downscaled image: %v", ErrRenderFailure, err)
	}

	r.logger.Debug("downscaled image", "from_w", cfg.Width, "from_h", cfg.Height, "to_w", w, "to_h", h)
	return &Page{Index: 0, Image: buf.Bytes(), Width: w, Height: h}, nil
}

// scaledDims shrinks (w, h) proportionally so the longer side equals maxDim.
func scaledDims(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
