// Package capture renders the single-shot "shaded" and "raw" variants of the
// accumulate program, reads them back and writes image and float dumps of the
// bottom-left quadrant of the canvas.
package capture

import (
	"fmt"
	"image"
	"io"
	"math/rand"

	"go.uber.org/zap"

	"blossom/gpu"
	"blossom/hotreload"
)

// Variant is one single-shot render requested through a sentinel frame index.
type Variant struct {
	Name  string
	Frame int32
	// Images also writes the color and depth PNGs.
	Images bool
}

// Variants are captured in this order.
var Variants = []Variant{
	{Name: "shaded", Frame: gpu.FrameShaded, Images: true},
	{Name: "raw", Frame: gpu.FrameRaw},
}

// Artifact names.
const (
	ColorImageName = "rendering.png"
	DepthImageName = "rendering_depth.png"
	WebPImageName  = "rendering.webp"
)

// Options controls the optional outputs.
type Options struct {
	// WebP also writes a WebP preview of the shaded color crop.
	WebP bool
	// WebPScale resizes the preview; values outside (0, 1) keep the crop size.
	WebPScale float64
	// Seed drives the depth dither.
	Seed int64
}

// Capturer owns the capture target and the host-side readback buffers.
type Capturer struct {
	dev      gpu.Device
	programs *hotreload.Library
	sink     Sink
	log      *zap.Logger
	opts     Options

	target        gpu.ColorBuffer
	width, height int
	readback      []float32
	topDown       []float32
	rng           *rand.Rand
}

// New allocates a capture target of the canvas size.
func New(dev gpu.Device, programs *hotreload.Library, sink Sink, width, height int, opts Options, logger *zap.Logger) (*Capturer, error) {
	target, err := dev.NewColorBuffer(width, height)
	if err != nil {
		return nil, fmt.Errorf("capture target: %w", err)
	}
	return &Capturer{
		dev:      dev,
		programs: programs,
		sink:     sink,
		log:      logger.Named("capture"),
		opts:     opts,
		target:   target,
		width:    width,
		height:   height,
		readback: make([]float32, width*height*4),
		topDown:  make([]float32, width*height*4),
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Capture renders every variant reading from source and writes its artifacts.
// It returns the names written.
func (c *Capturer) Capture(source gpu.ColorBuffer) ([]string, error) {
	crop := BottomLeftQuadrant(c.width, c.height)
	var written []string
	for _, v := range Variants {
		if err := c.render(v, source); err != nil {
			return written, fmt.Errorf("capture %s: %w", v.Name, err)
		}
		FlipRows(c.topDown, c.readback, c.width, c.height)

		if v.Images {
			names, err := c.writeImages(crop)
			written = append(written, names...)
			if err != nil {
				return written, fmt.Errorf("capture %s: %w", v.Name, err)
			}
		}

		name := RawName(v.Name, crop.Dx(), crop.Dy())
		if err := writeTo(c.sink, name, func(w io.Writer) error {
			return WriteRaw(w, c.topDown, c.width, crop)
		}); err != nil {
			return written, fmt.Errorf("capture %s: %w", v.Name, err)
		}
		written = append(written, name)
	}
	c.log.Info("captured first frame", zap.Strings("artifacts", written))
	return written, nil
}

// Release deletes the capture target.
func (c *Capturer) Release() {
	if c.target != nil {
		c.dev.DeleteColorBuffer(c.target)
		c.target = nil
	}
}

func (c *Capturer) render(v Variant, source gpu.ColorBuffer) error {
	c.dev.UseProgram(c.programs.Program(hotreload.RoleAccumulate).Handle)
	c.dev.BindTarget(c.target)
	c.dev.SetUniforms(gpu.Uniforms{
		Resolution: gpu.CanvasResolution(c.width, c.height),
		Frame:      v.Frame,
	})
	c.dev.BindSource(source)
	c.dev.DrawQuad()

	// Readback must see the finished draw.
	c.dev.Finish()
	return c.dev.ReadPixels(c.target, c.readback)
}

func (c *Capturer) writeImages(crop image.Rectangle) ([]string, error) {
	color := ColorImage(c.topDown, c.width, crop)
	depth := DepthImage(c.topDown, c.width, crop, c.rng)

	var written []string
	if err := writeTo(c.sink, ColorImageName, func(w io.Writer) error { return encodePNG(w, color) }); err != nil {
		return written, err
	}
	written = append(written, ColorImageName)
	if err := writeTo(c.sink, DepthImageName, func(w io.Writer) error { return encodePNG(w, depth) }); err != nil {
		return written, err
	}
	written = append(written, DepthImageName)

	if c.opts.WebP {
		preview := Downscale(color, c.opts.WebPScale)
		if err := writeTo(c.sink, WebPImageName, func(w io.Writer) error { return encodeWebP(w, preview) }); err != nil {
			return written, err
		}
		written = append(written, WebPImageName)
	}
	return written, nil
}
