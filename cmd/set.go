package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/nats"
	"github.com/spf13/cobra"
)

// ErrNothingToSet is returned when neither a brightness nor a trigger was given.
var ErrNothingToSet = errors.New("nothing to set: pass --brightness or --trigger")

// LEDSetter is the subset of the NATS control client used by set.
type LEDSetter interface {
	SetBrightness(ctx context.Context, name string, b int) error
	SetTrigger(ctx context.Context, name, trigger string) error
}

// CreateSetCmd creates the set command.
func CreateSetCmd() *cobra.Command {
	var (
		url        string
		name       string
		brightness int
		trigger    string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the brightness or trigger of a running LED",
		Long: `Sends a control request to a running gpioled over NATS. A brightness of 0 ` +
			`also removes the active trigger.`,
		Args: cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("nats")

			var b *int
			if c.Flags().Changed("brightness") {
				b = &brightness
			}

			client, err := nats.NewControlClient(url, logger)
			if err != nil {
				logger.Error("Failed to connect to NATS", "url", url, "error", err)
				os.Exit(1)
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := SetLED(ctx, client, name, b, trigger); err != nil {
				logger.Error("Set failed", "led", name, "error", err)
				cancel()
				client.Close()
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&url, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().StringVar(&name, "name", led.DefaultName, "LED name")
	cmd.Flags().IntVar(&brightness, "brightness", 0, "Brightness to write (0 switches off)")
	cmd.Flags().StringVar(&trigger, "trigger", "", "Trigger to activate (none, default-on, timer, heartbeat)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Request timeout")

	return cmd
}

// SetLED applies the trigger first so that an explicit brightness is the
// final state of the line.
func SetLED(ctx context.Context, setter LEDSetter, name string, brightness *int, trigger string) error {
	if brightness == nil && trigger == "" {
		return ErrNothingToSet
	}

	if trigger != "" {
		if err := setter.SetTrigger(ctx, name, trigger); err != nil {
			return err
		}
	}
	if brightness != nil {
		return setter.SetBrightness(ctx, name, *brightness)
	}
	return nil
}
