package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/energizer-project/craftlure/internal/assets"
)

// Settings is the configuration shared by every connection handler.
// It is built once at startup and never written afterwards.
type Settings struct {
	// Favicon is an optional data URI injected into the status document.
	Favicon string
	// StatusTemplate is the parsed status document.
	StatusTemplate map[string]interface{}
	// ReadTimeout bounds each socket read. Zero means no bound.
	ReadTimeout time.Duration
	// MaxPacketLength bounds a packet's declared length. Zero means no bound.
	MaxPacketLength int
}

// ParseStatusTemplate parses a JSON status document. The document must be
// a JSON object so that the favicon field can be injected.
func ParseStatusTemplate(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse status template: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("status template must be a JSON object")
	}
	return doc, nil
}

// LoadStatusTemplate reads and parses a status document from disk.
func LoadStatusTemplate(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status template %s: %w", path, err)
	}
	return ParseStatusTemplate(data)
}

// ResolveStatusTemplate loads the template at path, falling back to the
// built-in document when path is empty or the file does not exist. A file
// that exists but does not parse is an error.
func ResolveStatusTemplate(path string) (map[string]interface{}, error) {
	if path != "" {
		doc, err := LoadStatusTemplate(path)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Warn().Str("path", path).Msg("status template not found, using built-in template")
	}
	return ParseStatusTemplate(assets.DefaultStatusTemplate)
}

// EncodeIcon returns image bytes as a PNG data URI.
func EncodeIcon(image []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
}

// LoadIcon reads an icon file and encodes it as a data URI.
func LoadIcon(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("couldn't read server icon at %s: %w", path, err)
	}
	return EncodeIcon(data), nil
}
