package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrRawFormat is returned for dump names that do not follow
// <variant>.f32.<w>.<h>.data.
var ErrRawFormat = errors.New("capture: not a raw float dump name")

// RawName names the float dump of a variant.
func RawName(variant string, width, height int) string {
	return fmt.Sprintf("%s.f32.%d.%d.data", variant, width, height)
}

// ParseRawName splits a dump name into its variant and dimensions.
func ParseRawName(name string) (variant string, width, height int, err error) {
	parts := strings.Split(filepath.Base(name), ".")
	if len(parts) < 5 {
		return "", 0, 0, fmt.Errorf("%q: %w", name, ErrRawFormat)
	}
	n := len(parts)
	if parts[n-4] != "f32" || parts[n-1] != "data" {
		return "", 0, 0, fmt.Errorf("%q: %w", name, ErrRawFormat)
	}
	if width, err = strconv.Atoi(parts[n-3]); err != nil {
		return "", 0, 0, fmt.Errorf("%q width: %w", name, ErrRawFormat)
	}
	if height, err = strconv.Atoi(parts[n-2]); err != nil {
		return "", 0, 0, fmt.Errorf("%q height: %w", name, ErrRawFormat)
	}
	return strings.Join(parts[:n-4], "."), width, height, nil
}

// WriteRaw writes the crop of top-down pix as little-endian float32, four
// values per pixel, row by row.
func WriteRaw(w io.Writer, pix []float32, width int, crop image.Rectangle) error {
	rowLen := crop.Dx() * 4
	for y := crop.Min.Y; y < crop.Max.Y; y++ {
		start := (y*width + crop.Min.X) * 4
		if err := binary.Write(w, binary.LittleEndian, pix[start:start+rowLen]); err != nil {
			return err
		}
	}
	return nil
}

// ReadRaw reads a dump of width*height pixels written by WriteRaw.
func ReadRaw(r io.Reader, width, height int) ([]float32, error) {
	pix := make([]float32, width*height*4)
	if err := binary.Read(r, binary.LittleEndian, pix); err != nil {
		return nil, fmt.Errorf("read raw dump: %w", err)
	}
	return pix, nil
}
