package status

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrRead is the parent of every soft read failure. The poller keeps the
	// previous state when a read fails with an error wrapping ErrRead.
	ErrRead = errors.New("status read failed")

	// ErrSourceMissing indicates the status file does not exist.
	ErrSourceMissing = fmt.Errorf("%w: status file not found", ErrRead)

	// ErrKeyMissing indicates the status file has no line for the key.
	ErrKeyMissing = fmt.Errorf("%w: key not found", ErrRead)

	// ErrUnknownValue indicates the key's value matches neither the alert nor
	// the normal value.
	ErrUnknownValue = fmt.Errorf("%w: unrecognized value", ErrRead)
)

// Source yields the raw value of the monitored key.
type Source interface {
	Read() (string, error)
}

// FileReader reads a "Key: value" line from a line-oriented text file.
type FileReader struct {
	path string
	key  string
}

// NewFileReader creates a reader for key in the file at path.
func NewFileReader(path, key string) *FileReader {
	return &FileReader{path: path, key: key}
}

// Path returns the watched file path.
func (r *FileReader) Path() string {
	return r.path
}

// Read returns the trimmed value after the first colon of the first line whose
// trimmed content starts with "<key>:".
func (r *FileReader) Read() (string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSourceMissing, r.path)
		}
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	value, err := ParseValue(bufio.NewScanner(f), r.key)
	if err != nil {
		return "", fmt.Errorf("%w in %s", err, r.path)
	}
	return value, nil
}

// ParseValue scans lines until it finds the key and returns its value.
func ParseValue(scanner *bufio.Scanner, key string) (string, error) {
	prefix := key + ":"
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		_, value, _ := strings.Cut(line, ":")
		return strings.TrimSpace(value), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return "", fmt.Errorf("%w: %q", ErrKeyMissing, key)
}

// Classifier maps raw values onto alert states.
type Classifier struct {
	AlertValue  string
	NormalValue string
}

// DefaultClassifier matches the status file convention of "1" for alert and
// "0" for normal.
func DefaultClassifier() Classifier {
	return Classifier{AlertValue: "1", NormalValue: "0"}
}

// Classify returns the state for a raw value or ErrUnknownValue.
func (c Classifier) Classify(raw string) (AlertState, error) {
	switch raw {
	case c.AlertValue:
		return Alert, nil
	case c.NormalValue:
		return Normal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValue, raw)
	}
}
