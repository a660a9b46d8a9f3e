// Package collectors polls system state into Prometheus metrics.
package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/metrics"
)

// DefaultLoadInterval matches how often the kernel updates loadavg.
const DefaultLoadInterval = 5 * time.Second

// LoadCollector samples /proc/loadavg.
type LoadCollector struct {
	logger   *slog.Logger
	read     func() (*procfs.LoadAvg, error)
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewLoadCollector creates a collector reading the default procfs mount.
func NewLoadCollector() (*LoadCollector, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	return newLoadCollector(fs.LoadAvg, DefaultLoadInterval), nil
}

func newLoadCollector(read func() (*procfs.LoadAvg, error), interval time.Duration) *LoadCollector {
	return &LoadCollector{
		logger:   logging.GetLogger("metrics"),
		read:     read,
		interval: interval,
	}
}

// Start samples once immediately, then every interval until Stop.
func (c *LoadCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop stops the collector and waits for it to exit.
func (c *LoadCollector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *LoadCollector) run(ctx context.Context) {
	defer c.wg.Done()
	c.logger.Debug("Starting load average collection", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *LoadCollector) collect() {
	avg, err := c.read()
	if err != nil {
		c.logger.Warn("Failed to read load average", "error", err)
		return
	}
	metrics.SetLoadAverage(avg.Load1, avg.Load5, avg.Load15)
}
