// Package systemd reports service state to the service manager over the
// sd_notify protocol. Every call is a no-op when NOTIFY_SOCKET is unset.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// watchdogFunc matches daemon.SdWatchdogEnabled.
type watchdogFunc func(unsetEnvironment bool) (time.Duration, error)

// Notifier sends readiness, status and watchdog messages.
type Notifier struct {
	notify   notifyFunc
	watchdog watchdogFunc
	logger   *slog.Logger
}

// NewNotifier creates a notifier talking to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		notify:   daemon.SdNotify,
		watchdog: daemon.SdWatchdogEnabled,
		logger:   logger,
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready tells systemd startup finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown started.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Reloading tells systemd a config reload started. Call Ready when done.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Status sets the one-line status shown by systemctl status.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// RunWatchdog pings the watchdog at half the configured interval until ctx
// is done. healthy is checked before every ping; a failing check skips the
// ping so systemd restarts the service. Returns at once when the unit has
// no WatchdogSec.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() error) {
	interval, err := n.watchdog(false)
	if err != nil {
		n.logger.Warn("Watchdog configuration invalid", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	period := interval / 2
	n.logger.Info("Watchdog enabled", "interval", interval, "ping_every", period)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy != nil {
				if err := healthy(); err != nil {
					n.logger.Error("Health check failed, withholding watchdog ping", "error", err)
					continue
				}
			}
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
