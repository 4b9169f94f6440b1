package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vlk/flowver/internal/interval"
)

// writeLockFile renders the resolved intervals as the pipeline's lock
// format: a JSON object keyed by flow alias, each entry carrying
// minSdkVersion and, when bounded, maxSdkVersion.
func writeLockFile(path string, versions map[string]interval.Interval) error {
	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o644)
}
