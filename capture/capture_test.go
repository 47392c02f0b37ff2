package capture

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"blossom/gpu"
	"blossom/gpu/gputest"
	"blossom/hotreload"
)

const drawSource = "void main() { /* single shot */ }"

type memFile struct {
	bytes.Buffer
}

func (memFile) Close() error { return nil }

type memSink map[string]*memFile

func (s memSink) Create(name string) (io.WriteCloser, error) {
	f := &memFile{}
	s[name] = f
	return f, nil
}

// singleShot produces a deterministic image that depends on the variant.
func singleShot(x, y int, u gpu.Uniforms, _ *gputest.Buffer) [4]float32 {
	base := float32(0)
	if u.Frame == gpu.FrameRaw {
		base = 0.125
	}
	return [4]float32{base + float32(x)*0.01, float32(y) * 0.01, -0.25, float32(x+y) / 64}
}

func newTestCapturer(t *testing.T, w, h int, opts Options) (*Capturer, *gputest.Device, memSink) {
	t.Helper()
	dev := gputest.NewDevice()
	dev.Kernels[drawSource] = singleShot
	lib := hotreload.NewLibrary(dev, hotreload.MapSource{}, hotreload.Paths{}, zaptest.NewLogger(t))
	require.NoError(t, lib.Install(hotreload.RoleAccumulate, drawSource))
	sink := memSink{}
	c, err := New(dev, lib, sink, w, h, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c, dev, sink
}

func TestCaptureWritesArtifacts(t *testing.T) {
	c, dev, sink := newTestCapturer(t, 16, 8, Options{})
	source, _ := dev.NewColorBuffer(16, 8)

	names, err := c.Capture(source)
	require.NoError(t, err)

	assert.Equal(t, []string{ColorImageName, DepthImageName, "shaded.f32.8.4.data", "raw.f32.8.4.data"}, names)
	for _, n := range names {
		assert.Contains(t, sink, n)
	}
	assert.NotContains(t, sink, WebPImageName)
	assert.Equal(t, 2, dev.Finishes, "each readback is preceded by a sync")
}

func TestCaptureUsesSentinelsAndOwnTarget(t *testing.T) {
	c, dev, _ := newTestCapturer(t, 4, 4, Options{})
	source, _ := dev.NewColorBuffer(4, 4)

	_, err := c.Capture(source)
	require.NoError(t, err)

	require.Len(t, dev.Draws, 2)
	assert.Equal(t, gpu.FrameShaded, dev.Draws[0].Uniforms.Frame)
	assert.Equal(t, gpu.FrameRaw, dev.Draws[1].Uniforms.Frame)
	for _, d := range dev.Draws {
		assert.Same(t, c.target, d.Target)
		assert.Same(t, source, d.Source)
		assert.Zero(t, d.Uniforms.Phase)
	}
}

func TestCaptureRawRoundTrip(t *testing.T) {
	const w, h = 16, 8
	c, dev, sink := newTestCapturer(t, w, h, Options{})
	source, _ := dev.NewColorBuffer(w, h)

	_, err := c.Capture(source)
	require.NoError(t, err)

	name := RawName("raw", w/2, h/2)
	variant, cw, ch, err := ParseRawName(name)
	require.NoError(t, err)
	assert.Equal(t, "raw", variant)

	got, err := ReadRaw(bytes.NewReader(sink[name].Bytes()), cw, ch)
	require.NoError(t, err)

	target := c.target.(*gputest.Buffer)
	for ty := 0; ty < ch; ty++ {
		// Top-down row ty of the crop is bottom-up row ch-1-ty of the target.
		by := ch - 1 - ty
		for x := 0; x < cw; x++ {
			want := target.At(x, by)
			i := (ty*cw + x) * 4
			assert.Equal(t, want[:], got[i:i+4], "pixel %d,%d", x, ty)
		}
	}
}

func TestCaptureColorAndDepthImages(t *testing.T) {
	const w, h = 16, 8
	c, dev, sink := newTestCapturer(t, w, h, Options{Seed: 7})
	source, _ := dev.NewColorBuffer(w, h)

	_, err := c.Capture(source)
	require.NoError(t, err)

	colorImg, err := png.Decode(bytes.NewReader(sink[ColorImageName].Bytes()))
	require.NoError(t, err)
	depthImg, err := png.Decode(bytes.NewReader(sink[DepthImageName].Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, w/2, h/2), colorImg.Bounds())
	_, isGray := depthImg.(*image.Gray)
	assert.True(t, isGray)

	// Top-left of the crop is bottom-up row h/2-1 of the canvas.
	shaded := singleShot(0, h/2-1, gpu.Uniforms{Frame: gpu.FrameShaded}, nil)
	r, g, b, a := colorImg.At(0, 0).RGBA()
	assert.Equal(t, uint32(ToByte(shaded[0]+0.5)), r>>8)
	assert.Equal(t, uint32(ToByte(shaded[1]+0.5)), g>>8)
	assert.Equal(t, uint32(ToByte(shaded[2]+0.5)), b>>8)
	assert.Equal(t, uint32(255), a>>8)

	depth := depthImg.(*image.Gray).GrayAt(0, 0).Y
	assert.InDelta(t, float64(ToByte(shaded[3])), float64(depth), 1)
}

func TestCaptureWebPPreview(t *testing.T) {
	c, dev, sink := newTestCapturer(t, 32, 32, Options{WebP: true, WebPScale: 0.5})
	source, _ := dev.NewColorBuffer(32, 32)

	names, err := c.Capture(source)
	require.NoError(t, err)
	assert.Contains(t, names, WebPImageName)
	assert.NotZero(t, sink[WebPImageName].Len())
}

func TestCaptureReleaseDeletesTarget(t *testing.T) {
	c, _, _ := newTestCapturer(t, 4, 4, Options{})
	target := c.target.(*gputest.Buffer)

	c.Release()
	assert.True(t, target.Deleted)
}

func TestFlipRows(t *testing.T) {
	src := []float32{
		0, 0, 0, 0, 1, 1, 1, 1,
		2, 2, 2, 2, 3, 3, 3, 3,
		4, 4, 4, 4, 5, 5, 5, 5,
	}
	dst := make([]float32, len(src))
	FlipRows(dst, src, 2, 3)
	assert.Equal(t, []float32{
		4, 4, 4, 4, 5, 5, 5, 5,
		2, 2, 2, 2, 3, 3, 3, 3,
		0, 0, 0, 0, 1, 1, 1, 1,
	}, dst)
}

func TestToByte(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-0.1, 0},
		{0, 0},
		{0.5, 127},
		{1, 255},
		{1.7, 255},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ToByte(tc.in), "ToByte(%v)", tc.in)
	}
}

func TestDepthDitherStaysWithinHalfStep(t *testing.T) {
	pix := make([]float32, 8*8*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 100.0 / 255
	}
	img := DepthImage(pix, 8, image.Rect(0, 0, 8, 8), rand.New(rand.NewSource(1)))
	for _, v := range img.Pix {
		assert.InDelta(t, 100, float64(v), 1)
	}
}

func TestBottomLeftQuadrant(t *testing.T) {
	assert.Equal(t, image.Rect(0, 135, 240, 270), BottomLeftQuadrant(480, 270))
	assert.Equal(t, image.Rect(0, 4, 3, 7), BottomLeftQuadrant(7, 7))
}

func TestParseRawNameRejectsOtherFormats(t *testing.T) {
	_, _, _, err := ParseRawName("images/raw.u8.960.540.data")
	assert.ErrorIs(t, err, ErrRawFormat)
	_, _, _, err = ParseRawName("raw.data")
	assert.ErrorIs(t, err, ErrRawFormat)

	variant, w, h, err := ParseRawName("images/painted/spheres1.f32.960.540.data")
	require.NoError(t, err)
	assert.Equal(t, "spheres1", variant)
	assert.Equal(t, 960, w)
	assert.Equal(t, 540, h)
}
