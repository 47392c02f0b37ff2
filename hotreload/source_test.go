package hotreload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSourceRetriesUntilReadable(t *testing.T) {
	s := NewFileSource(10, time.Microsecond)
	calls := 0
	s.readFile = func(string) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("sharing violation")
		}
		return []byte("void main() {}"), nil
	}

	text, err := s.Read("draw.frag")
	require.NoError(t, err)
	assert.Equal(t, "void main() {}", text)
	assert.Equal(t, 3, calls)
}

func TestFileSourceGivesUpAfterAttempts(t *testing.T) {
	s := NewFileSource(4, time.Microsecond)
	calls := 0
	s.readFile = func(string) ([]byte, error) {
		calls++
		return nil, os.ErrPermission
	}

	_, err := s.Read("draw.frag")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 4, calls)
}

func TestFileSourceTreatsEmptyFileAsTransient(t *testing.T) {
	s := NewFileSource(2, time.Microsecond)
	s.readFile = func(string) ([]byte, error) { return nil, nil }

	_, err := s.Read("draw.frag")
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestFileSourceReadsDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "present.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}\n"), 0o644))

	text, err := NewFileSource(0, 0).Read(path)
	require.NoError(t, err)
	assert.Equal(t, "void main() {}\n", text)
}

func TestConsoleReporterPrintsDriverLog(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)

	r.ReportFailure(&ReloadError{Role: RolePresent, Path: "present.frag", Err: errors.New("0:3: syntax error")})

	assert.Contains(t, buf.String(), "present program present.frag failed to build")
	assert.Contains(t, buf.String(), "0:3: syntax error")
}
