package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/fraudring/internal/domain"
)

// WriteTopRings serializes the envelope to path, creating parent directories.
func WriteTopRings(resp domain.TopRingsResponse, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := Encode(file, resp); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

// Encode writes data as indented JSON.
func Encode(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
