package capture

import (
	"image"
	"image/color"
	"math/rand"
)

// BottomLeftQuadrant is the crop written by a capture, in top-down
// coordinates.
func BottomLeftQuadrant(width, height int) image.Rectangle {
	cw, ch := width/2, height/2
	return image.Rect(0, height-ch, cw, height)
}

// FlipRows copies bottom-up rows of src into top-down order in dst.
func FlipRows(dst, src []float32, width, height int) {
	stride := width * 4
	for y := 0; y < height; y++ {
		copy(dst[y*stride:(y+1)*stride], src[(height-y-1)*stride:(height-y)*stride])
	}
}

// ToByte clips v to [0, 1] and scales it to [0, 255], truncating.
func ToByte(v float32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 255
	}
	return uint8(v * 255)
}

// ColorImage converts the RGB channels of the crop with a +0.5 bias, matching
// what the built-in present program shows.
func ColorImage(pix []float32, width int, crop image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	for y := 0; y < crop.Dy(); y++ {
		for x := 0; x < crop.Dx(); x++ {
			i := ((crop.Min.Y+y)*width + crop.Min.X + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: ToByte(pix[i] + 0.5),
				G: ToByte(pix[i+1] + 0.5),
				B: ToByte(pix[i+2] + 0.5),
				A: 255,
			})
		}
	}
	return img
}

// depthJitter is half an 8-bit step.
const depthJitter = 0.5 / 255

// DepthImage converts the alpha channel of the crop, which carries depth,
// dithered by up to half a step in either direction.
func DepthImage(pix []float32, width int, crop image.Rectangle, rng *rand.Rand) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	for y := 0; y < crop.Dy(); y++ {
		for x := 0; x < crop.Dx(); x++ {
			i := ((crop.Min.Y+y)*width + crop.Min.X + x) * 4
			v := pix[i+3] + depthJitter*float32(rng.Intn(3)-1)
			img.SetGray(x, y, color.Gray{Y: ToByte(v)})
		}
	}
	return img
}
