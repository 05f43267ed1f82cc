// Package fsutil probes local disk space ahead of batch video processing,
// where a single video's download-to-temp step can pull several gigabytes
// onto the machine running this service.
package fsutil

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const GB = 1024 * 1024 * 1024

// criticalFreeSpaceGB and lowFreeSpaceGB are the thresholds LogDiskSpaceWarnings
// escalates on. A batch run downloads one video header/body to a temp file at a
// time, so these are sized around a single large video rather than the whole
// library.
const (
	criticalFreeSpaceGB = 1
	lowFreeSpaceGB      = 5
)

// AvailableSpace returns available disk space in bytes for the given path,
// cross-platform via gopsutil.
func AvailableSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get disk space for %s: %w", path, err)
	}
	return usage.Free, nil
}

// CheckDiskSpace returns an error if path has less than requiredGB of free
// space. Intended as a hard gate before a batch run starts extracting and
// translating video subtitle tracks.
func CheckDiskSpace(path string, requiredGB int, logger *zerolog.Logger) error {
	available, err := AvailableSpace(path)
	if err != nil {
		return err
	}

	availableGB := float64(available) / float64(GB)
	requiredBytes := uint64(requiredGB) * GB

	if available < requiredBytes {
		return fmt.Errorf("insufficient space at %s to start batch processing: %.2f GB available, %d GB required",
			path, availableGB, requiredGB)
	}

	logger.Debug().
		Str("path", path).
		Float64("available_gb", availableGB).
		Int("required_gb", requiredGB).
		Msg("temp directory has enough space for batch processing")

	return nil
}

// LogDiskSpaceWarnings logs, but never fails, based on available disk space
// in path: error-level below criticalFreeSpaceGB, warn-level below
// lowFreeSpaceGB. Meant to be polled once per video during a long batch run
// so an operator notices shrinking headroom well before a download fails
// partway through.
func LogDiskSpaceWarnings(path string, logger *zerolog.Logger) {
	available, err := AvailableSpace(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not check temp directory space mid-batch")
		return
	}

	availableGB := float64(available) / float64(GB)

	switch {
	case available < criticalFreeSpaceGB*GB:
		logger.Error().
			Str("path", path).
			Float64("available_gb", availableGB).
			Msg("temp directory is critically low on space during batch processing")
	case available < lowFreeSpaceGB*GB:
		logger.Warn().
			Str("path", path).
			Float64("available_gb", availableGB).
			Msg("temp directory is running low on space during batch processing")
	}
}
