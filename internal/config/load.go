package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat reports a config path with an unsupported extension.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Load reads settings from path, choosing the format by extension
// (.toml, .yaml, .yml). Fields absent from the file keep their
// defaults; the result is sanitized. A missing file is not an error
// and yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	s.Sanitize()
	return s, nil
}
