package main

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom/capture"
)

func TestSummarize(t *testing.T) {
	stats := summarize([]float32{
		0, 1, -1, 0.5,
		2, 1, 1, 0.5,
	})
	assert.Equal(t, channelStats{Min: 0, Max: 2, Mean: 1}, stats[0])
	assert.Equal(t, channelStats{Min: 1, Max: 1, Mean: 1}, stats[1])
	assert.Equal(t, channelStats{Min: -1, Max: 1, Mean: 0}, stats[2])
	assert.Equal(t, channelStats{Min: 0.5, Max: 0.5, Mean: 0.5}, stats[3])

	assert.Equal(t, [4]channelStats{}, summarize(nil))
}

func TestDescribeReadsCaptureDump(t *testing.T) {
	pix := []float32{
		0.25, 0.5, 0.75, 1,
		0.25, 0.5, 0.75, 0,
	}
	path := filepath.Join(t.TempDir(), capture.RawName("raw", 2, 1))
	var buf bytes.Buffer
	require.NoError(t, capture.WriteRaw(&buf, pix, 2, image.Rect(0, 0, 2, 1)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	var out bytes.Buffer
	require.NoError(t, describe(&out, path))
	assert.Contains(t, out.String(), "raw 2x1")
	assert.Contains(t, out.String(), "a min=0.0000 max=1.0000 mean=0.5000")
}

func TestDescribeRejectsShortDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), capture.RawName("shaded", 4, 4))
	require.NoError(t, os.WriteFile(path, make([]byte, 12), 0o644))

	assert.Error(t, describe(&bytes.Buffer{}, path))
}

func TestDescribeRejectsOtherNames(t *testing.T) {
	assert.ErrorIs(t, describe(&bytes.Buffer{}, "rendering.png"), capture.ErrRawFormat)
}
