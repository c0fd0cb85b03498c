package engine

import "image"

// ScaleToShortSide downsamples img so its short side is at most target
// pixels, preserving aspect ratio. Images already within the target, or a
// non-positive target, are returned unchanged. Nearest-neighbor sampling is
// enough here: the output feeds OCR and coordinate math, not humans.
func ScaleToShortSide(img image.Image, target int) image.Image {
	if img == nil || target <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := w
	if h < w {
		short = h
	}
	if short <= target {
		return img
	}

	scale := float64(target) / float64(short)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + y*h/dh
		for x := 0; x < dw; x++ {
			sx := b.Min.X + x*w/dw
			dst.Set(x, y, img.At(sx, sy))
		}
	}
	return dst
}
