package gpio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendAuto   = "auto"
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
	BackendSim    = "sim"
)

// SimLines is the line count of the simulator chosen by Open.
const SimLines = 64

var (
	deviceTreeModelPath = "/proc/device-tree/model"
	devDir              = "/dev"
)

// Open returns the provider for backend. With BackendAuto the character
// device is used when the chip node exists, the simulator otherwise.
func Open(backend, chip string, logger *slog.Logger) (Provider, error) {
	if backend == BackendAuto {
		backend = detectBackend(chip, logger)
	}

	switch backend {
	case BackendCdev:
		return NewCdev(chip, logger)
	case BackendPeriph:
		return NewPeriph(logger)
	case BackendSim:
		logger.Warn("Using simulated GPIO lines, nothing will be driven")
		return NewSim(SimLines), nil
	default:
		return nil, fmt.Errorf("unknown GPIO backend %q", backend)
	}
}

func detectBackend(chip string, logger *slog.Logger) string {
	boardModel := detectBoard()
	logger.Info("Detecting GPIO backend", "board_model", boardModel, "chip", chip)

	if _, err := os.Stat(filepath.Join(devDir, chip)); err == nil {
		return BackendCdev
	}
	logger.Info("No GPIO chip found, falling back to simulator", "chip", chip)
	return BackendSim
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
