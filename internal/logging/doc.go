// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is connected, to the systemd journal when
// journald is running, and to a small in-memory history served at
// /api/logs.
//
// Initialize once at startup, and again after a config reload:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"ledclass": "debug",
//			"http":     "warn",
//		},
//	})
//
// Modules get their own logger:
//
//	logger := logging.GetLogger("gpio")
//	logger.Info("Line acquired", "line", 5)
//
// Loggers obtained before Initialize log at info in text format and are
// rebuilt in place when Initialize runs.
//
// # Viewing Logs
//
//	journalctl -t gpioled -f
//	journalctl -t gpioled MODULE=ledclass
//	journalctl -t gpioled LED=nuc980::led1
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	ledclass = "debug"
//	http = "warn"
package logging
