package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/updater"
	"github.com/spf13/cobra"
)

// DefaultRepository is the GitHub repository releases are fetched from.
const DefaultRepository = "smazurov/gpioled"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		repo       string
		prerelease bool
		checkOnly  bool
		rollback   bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace this binary with the latest release",
		Long: `Downloads the latest GitHub release and replaces the gpioled binary, keeping ` +
			`a backup for --rollback. Restart the service afterwards to pick it up.`,
		Args: cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("updater")

			if checkOnly && rollback {
				logger.Error("--check and --rollback are mutually exclusive")
				os.Exit(2)
			}

			svc, err := updater.NewService(&updater.Options{Repository: repo, Prerelease: prerelease})
			if err != nil {
				logger.Error("Failed to create updater", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := RunUpdate(ctx, svc, checkOnly, rollback, c.OutOrStdout()); err != nil {
				logger.Error("Update failed", "error", err)
				cancel()
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&repo, "repo", DefaultRepository, "GitHub repository to fetch releases from")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")

	return cmd
}

// RunUpdate checks, applies or rolls back an update and reports the outcome to w.
func RunUpdate(ctx context.Context, svc updater.Service, checkOnly, rollback bool, w io.Writer) error {
	if !svc.IsEnabled() {
		return fmt.Errorf("updates disabled: %s", svc.DisabledReason())
	}

	if rollback {
		if err := svc.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintf(w, "restored %s\n", svc.GetStatus(ctx).BackupVersion)
		return nil
	}

	info, err := svc.CheckForUpdate(ctx)
	if err != nil {
		return err
	}
	if !info.UpdateAvailable {
		fmt.Fprintf(w, "%s is up to date (latest %s)\n", info.CurrentVersion, info.LatestVersion)
		return nil
	}
	fmt.Fprintf(w, "update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
	if checkOnly {
		return nil
	}

	if err := svc.ApplyUpdate(ctx); err != nil {
		if errors.Is(err, updater.ErrApplyFailed) {
			fmt.Fprintln(w, "install failed, previous binary restored")
		}
		return err
	}
	fmt.Fprintf(w, "installed %s, restart gpioled to use it\n", info.LatestVersion)
	return nil
}
