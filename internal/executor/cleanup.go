package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// capturePattern names the per-run output files in the temp directory.
const capturePattern = "nexus_output_*.txt"

// CleanupOrphaned removes capture files left over from previous runs, for
// example after a crash. Only files last modified before olderThan ago are
// removed so that captures of in-flight runs survive.
func (r *Runner) CleanupOrphaned(olderThan time.Duration) (int, error) {
	dir := r.tempDir
	if dir == "" {
		dir = os.TempDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, capturePattern))
	if err != nil {
		return 0, fmt.Errorf("listing capture files: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var cleaned int
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}

		logger := log.With().Str("path", path).Logger()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("failed to remove orphaned capture file")
			continue
		}
		logger.Debug().Msg("removed orphaned capture file")
		cleaned++
	}

	if cleaned > 0 {
		log.Info().Int("count", cleaned).Str("dir", dir).Msg("cleaned up orphaned capture files")
	}

	return cleaned, nil
}
