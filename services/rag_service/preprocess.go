package rag_service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

var (
	grayBlack = color.Gray{Y: 0}
	grayWhite = color.Gray{Y: 255}
)

// Preprocessing constants mirror the reference scanner pipeline: a light
// Gaussian blur, a local-mean threshold over an 11x11 neighborhood and a 3x3
// closing kernel.
const (
	blurSigma       = 1.4
	thresholdWindow = 11
	thresholdOffset = 2
)

func decodeGray(data []byte) (*image.Gray, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return grayOf(img), nil
}

func grayOf(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// enhance runs the full preprocessing chain over a grayscale raster. Callers
// fall back to the plain grayscale input when it fails: a degraded scan
// should lower recognition accuracy, not abort ingestion.
func enhance(gray *image.Gray) (*image.Gray, error) {
	bounds := gray.Bounds()
	if bounds.Dx() < thresholdWindow || bounds.Dy() < thresholdWindow {
		return nil, fmt.Errorf("image %dx%d smaller than threshold window", bounds.Dx(), bounds.Dy())
	}

	blurred := grayOf(imaging.Blur(gray, blurSigma))
	binary := adaptiveThreshold(blurred, thresholdWindow, thresholdOffset)
	return closing(binary), nil
}

// adaptiveThreshold binarizes against a local mean so unevenly lit scans
// still separate ink from paper. Output is inverted: ink becomes white.
func adaptiveThreshold(src *image.Gray, window, offset int) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	radius := window / 2

	// Summed-area table, one row/column of padding.
	integral := make([]uint64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	dst := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(0, x-radius), max(0, y-radius)
			x1, y1 := min(w-1, x+radius), min(h-1, y+radius)
			count := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*stride+x1+1] -
				integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] +
				integral[y0*stride+x0]
			mean := int(sum / count)

			v := int(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			if v > mean-offset {
				dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, grayBlack)
			} else {
				dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, grayWhite)
			}
		}
	}
	return dst
}

// closing reconnects broken character strokes: a 3x3 dilation followed by a
// 3x3 erosion over the binarized raster.
func closing(src *image.Gray) *image.Gray {
	return erode(dilate(src))
}

func dilate(src *image.Gray) *image.Gray {
	return morph(src, func(best, v uint8) bool { return v > best })
}

func erode(src *image.Gray) *image.Gray {
	return morph(src, func(best, v uint8) bool { return v < best })
}

func morph(src *image.Gray, better func(best, v uint8) bool) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			best := src.GrayAt(x, y).Y
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || ny < bounds.Min.Y || nx >= bounds.Max.X || ny >= bounds.Max.Y {
						continue
					}
					if v := src.GrayAt(nx, ny).Y; better(best, v) {
						best = v
					}
				}
			}
			dst.SetGray(x, y, color.Gray{Y: best})
		}
	}
	return dst
}
