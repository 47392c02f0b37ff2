package hotreload

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Source reads program text.
type Source interface {
	Read(path string) (string, error)
}

// ErrEmptySource is returned when a source file has no content, which is what
// an editor leaves behind halfway through a save.
var ErrEmptySource = errors.New("hotreload: source file is empty")

const (
	DefaultReadAttempts = 10
	DefaultReadDelay    = time.Millisecond
)

// FileSource reads program text from disk, retrying while the file is locked
// or truncated by an editor.
type FileSource struct {
	Attempts int
	Delay    time.Duration

	readFile func(string) ([]byte, error)
}

// NewFileSource returns a FileSource with the given retry budget. Values
// below one fall back to the defaults.
func NewFileSource(attempts int, delay time.Duration) *FileSource {
	if attempts < 1 {
		attempts = DefaultReadAttempts
	}
	if delay <= 0 {
		delay = DefaultReadDelay
	}
	return &FileSource{Attempts: attempts, Delay: delay, readFile: os.ReadFile}
}

func (s *FileSource) Read(path string) (string, error) {
	var text string
	read := func() error {
		data, err := s.readFile(path)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return ErrEmptySource
		}
		text = string(data)
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(s.Delay), uint64(s.Attempts-1))
	if err := backoff.Retry(read, policy); err != nil {
		return "", fmt.Errorf("read %s after %d attempts: %w", path, s.Attempts, err)
	}
	return text, nil
}

// MapSource serves sources from memory. Missing paths fail like an unreadable
// file.
type MapSource map[string]string

func (m MapSource) Read(path string) (string, error) {
	text, ok := m[path]
	if !ok {
		return "", fmt.Errorf("read %s: %w", path, os.ErrNotExist)
	}
	return text, nil
}
