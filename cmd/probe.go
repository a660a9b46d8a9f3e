package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/smazurov/gpioled/internal/gpio"
	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/spf13/cobra"
)

// ErrReadBack is returned when a line does not read back the level written to it.
var ErrReadBack = errors.New("read back mismatch")

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var (
		backend string
		chip    string
		line    int
		label   string
		logJSON bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the LED line can be driven",
		Long: `Acquires the GPIO line, drives it high and low reading each level back, ` +
			`then releases it. Stop the service first: the line cannot be held twice.`,
		Args: cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("gpio").With("line", line)

			provider, err := gpio.Open(backend, chip, logger)
			if err != nil {
				logger.Error("Failed to open GPIO backend", "backend", backend, "error", err)
				os.Exit(1)
			}
			defer provider.Close()

			if err := Probe(provider, line, label, c.OutOrStdout()); err != nil {
				logger.Error("Probe failed", "error", err)
				provider.Close()
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&backend, "backend", gpio.BackendAuto, "GPIO backend (auto, cdev, periph, sim)")
	cmd.Flags().StringVar(&chip, "chip", "gpiochip0", "GPIO chip for the cdev backend")
	cmd.Flags().IntVar(&line, "line", led.DefaultLine, "GPIO line number")
	cmd.Flags().StringVar(&label, "label", led.DefaultLabel, "Consumer label while the line is held")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// Probe acquires id, drives it high then low checking each level reads
// back, and releases it. Progress is written to w. The line is always
// released, and it is left low.
func Probe(provider gpio.Provider, id int, label string, w io.Writer) (err error) {
	if !provider.Valid(id) {
		fmt.Fprintf(w, "line %d: not present on this chip\n", id)
		return fmt.Errorf("line %d: %w", id, gpio.ErrInvalidLine)
	}

	line, err := provider.Acquire(id, label)
	if err != nil {
		fmt.Fprintf(w, "line %d: acquire failed: %v\n", id, err)
		return fmt.Errorf("acquire line %d: %w", id, err)
	}
	fmt.Fprintf(w, "line %d: acquired as %q\n", id, label)
	defer func() {
		if relErr := line.Release(); relErr != nil {
			fmt.Fprintf(w, "line %d: release failed: %v\n", id, relErr)
			err = errors.Join(err, fmt.Errorf("release line %d: %w", id, relErr))
			return
		}
		fmt.Fprintf(w, "line %d: released\n", id)
	}()

	if err := line.ConfigureOutput(gpio.Low); err != nil {
		fmt.Fprintf(w, "line %d: set output failed: %v\n", id, err)
		return fmt.Errorf("configure line %d as output: %w", id, err)
	}

	for _, want := range []gpio.Level{gpio.High, gpio.Low} {
		if err := line.Write(want); err != nil {
			fmt.Fprintf(w, "line %d: write %s failed: %v\n", id, want, err)
			return fmt.Errorf("write line %d: %w", id, err)
		}
		got, err := line.Read()
		if err != nil {
			fmt.Fprintf(w, "line %d: read failed: %v\n", id, err)
			return fmt.Errorf("read line %d: %w", id, err)
		}
		if got != want {
			fmt.Fprintf(w, "line %d: wrote %s, read %s\n", id, want, got)
			return fmt.Errorf("line %d: wrote %s, read %s: %w", id, want, got, ErrReadBack)
		}
		fmt.Fprintf(w, "line %d: %s ok\n", id, want)
	}
	return nil
}
