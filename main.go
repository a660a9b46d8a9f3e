package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smazurov/gpioled/cmd"
	"github.com/smazurov/gpioled/internal/api"
	"github.com/smazurov/gpioled/internal/config"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/gpio"
	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/ledclass"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/metrics"
	"github.com/smazurov/gpioled/internal/metrics/collectors"
	"github.com/smazurov/gpioled/internal/metrics/exporters"
	"github.com/smazurov/gpioled/internal/mqtt"
	"github.com/smazurov/gpioled/internal/nats"
	"github.com/smazurov/gpioled/internal/systemd"
	"github.com/smazurov/gpioled/internal/updater"
	"github.com/smazurov/gpioled/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings, empty disables auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// GPIO settings
	GPIOBackend string `help:"GPIO backend (auto, cdev, periph, sim)" default:"auto" toml:"gpio.backend" env:"GPIO_BACKEND"`
	GPIOChip    string `help:"GPIO chip for the cdev backend" default:"gpiochip0" toml:"gpio.chip" env:"GPIO_CHIP"`
	GPIOLine    int    `help:"GPIO line driving the LED" default:"5" toml:"gpio.line" env:"GPIO_LINE"`
	GPIOLabel   string `help:"Consumer label while the line is held" default:"NUC_LED_GPIO" toml:"gpio.label" env:"GPIO_LABEL"`

	// LED settings
	LEDName             string `help:"LED name" default:"nuc980::led1" toml:"led.name" env:"LED_NAME"`
	LEDDefaultTrigger   string `help:"Trigger activated at registration (none, default-on, timer, heartbeat)" default:"heartbeat" toml:"led.default_trigger" env:"LED_DEFAULT_TRIGGER"`
	LEDTimerDelayOnMs   int    `help:"Timer trigger on time in milliseconds" default:"500" toml:"led.timer_delay_on_ms" env:"LED_TIMER_DELAY_ON_MS"`
	LEDTimerDelayOffMs  int    `help:"Timer trigger off time in milliseconds" default:"500" toml:"led.timer_delay_off_ms" env:"LED_TIMER_DELAY_OFF_MS"`
	LEDRetainAtShutdown bool   `help:"Leave the LED as it is on shutdown instead of switching it off" default:"false" toml:"led.retain_at_shutdown" env:"LED_RETAIN_AT_SHUTDOWN"`

	// Self-update settings
	UpdateEnabled    bool   `help:"Expose the self-update endpoints" default:"false" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository to fetch releases from" default:"smazurov/gpioled" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// NATS settings
	NATSEnabled  bool   `help:"Publish LED state and accept control requests over NATS" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NATSEmbedded bool   `help:"Run an embedded NATS server instead of connecting to nats.url" default:"true" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NATSURL      string `help:"NATS server URL when not embedded" default:"nats://127.0.0.1:4222" toml:"nats.url" env:"NATS_URL"`
	NATSPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// MQTT settings, exposes the LED to Home Assistant
	MQTTEnabled         bool   `help:"Expose LEDs as Home Assistant MQTT lights" default:"false" toml:"mqtt.enabled" env:"MQTT_ENABLED"`
	MQTTBroker          string `help:"MQTT broker URI" default:"tcp://127.0.0.1:1883" toml:"mqtt.broker" env:"MQTT_BROKER"`
	MQTTUsername        string `help:"MQTT username" default:"" toml:"mqtt.username" env:"MQTT_USERNAME"`
	MQTTPassword        string `help:"MQTT password" default:"" toml:"mqtt.password" env:"MQTT_PASSWORD"`
	MQTTClientID        string `help:"MQTT client id, also the Home Assistant device" default:"gpioled" toml:"mqtt.client_id" env:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix     string `help:"Prefix of state and command topics" default:"gpioled" toml:"mqtt.topic_prefix" env:"MQTT_TOPIC_PREFIX"`
	MQTTDiscoveryPrefix string `help:"Home Assistant discovery prefix" default:"homeassistant" toml:"mqtt.discovery_prefix" env:"MQTT_DISCOVERY_PREFIX"`

	// Observability settings
	ObsPrometheusEnabled bool `help:"Enable Prometheus" default:"true" toml:"obs.prometheus_enabled" env:"OBS_PROMETHEUS_ENABLED"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingLED      string `help:"LED controller logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingLEDClass string `help:"LED class and trigger logging level" default:"info" toml:"logging.ledclass" env:"LOGGING_LEDCLASS"`
	LoggingGPIO     string `help:"GPIO backend logging level" default:"info" toml:"logging.gpio" env:"LOGGING_GPIO"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig   string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingUpdater  string `help:"Self-update logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
	LoggingNATS     string `help:"NATS bridge logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingMQTT     string `help:"MQTT bridge logging level" default:"info" toml:"logging.mqtt" env:"LOGGING_MQTT"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"led":      o.LoggingLED,
			"ledclass": o.LoggingLEDClass,
			"gpio":     o.LoggingGPIO,
			"api":      o.LoggingAPI,
			"http":     o.LoggingAPI,
			"config":   o.LoggingConfig,
			"updater":  o.LoggingUpdater,
			"nats":     o.LoggingNATS,
			"mqtt":     o.LoggingMQTT,
		},
	}
}

func (o *Options) ledFlags() led.Flags {
	var flags led.Flags
	if o.LEDRetainAtShutdown {
		flags |= led.FlagRetainAtShutdown
	}
	return flags
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		notifier := systemd.NewNotifier(logging.GetLogger("main"))
		eventBus := events.New()

		timer := ledclass.NewTimer(clock.New(),
			time.Duration(opts.LEDTimerDelayOnMs)*time.Millisecond,
			time.Duration(opts.LEDTimerDelayOffMs)*time.Millisecond)
		registry := ledclass.NewRegistry(logging.GetLogger("ledclass"),
			ledclass.WithBus(eventBus),
			ledclass.WithTrigger(timer),
		)

		var (
			provider     gpio.Provider
			ctrl         *led.Controller
			watcher      *config.Watcher[config.Runtime]
			unsubMetrics func()
			loadCol      *collectors.LoadCollector
			stopWatchdog context.CancelFunc
			natsServer   *nats.Server
			natsBridge   *nats.Bridge
			mqttBridge   *mqtt.Bridge
			watchdogDone chan struct{}
		)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			LEDs:         registry,
			EventBus:     eventBus,
		}
		if opts.ObsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		if opts.UpdateEnabled {
			svc, err := updater.NewService(&updater.Options{
				Repository: opts.UpdateRepository,
				Prerelease: opts.UpdatePrerelease,
				Restart:    updater.SignalRestart,
			})
			if err != nil {
				logger.Warn("Self-update unavailable", "error", err)
			} else {
				apiOpts.UpdateService = svc
			}
		}
		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			logger.Info("Starting gpioled", "version", version.Long())

			if opts.ObsPrometheusEnabled {
				unsubMetrics = metrics.Subscribe(eventBus)
				info := version.Get()
				if regErr := exporters.RegisterBuildInfo(prometheus.DefaultRegisterer, info.Version, info.GitCommit); regErr != nil {
					logger.Warn("Failed to register build info metric", "error", regErr)
				}
				var colErr error
				if loadCol, colErr = collectors.NewLoadCollector(); colErr != nil {
					logger.Warn("Load average collector unavailable", "error", colErr)
				} else {
					loadCol.Start(context.Background())
				}
			}

			if opts.NATSEnabled {
				natsServer, natsBridge = startNATS(opts, eventBus, registry)
			}
			if opts.MQTTEnabled {
				mqttBridge = mqtt.New(mqtt.Options{
					Broker:          opts.MQTTBroker,
					Username:        opts.MQTTUsername,
					Password:        opts.MQTTPassword,
					ClientID:        opts.MQTTClientID,
					TopicPrefix:     opts.MQTTTopicPrefix,
					DiscoveryPrefix: opts.MQTTDiscoveryPrefix,
				}, eventBus, registry, logging.GetLogger("mqtt"))
				if mqttErr := mqttBridge.Start(); mqttErr != nil {
					logger.Warn("MQTT bridge unavailable", "broker", opts.MQTTBroker, "error", mqttErr)
					mqttBridge = nil
				}
			}

			var err error
			provider, err = gpio.Open(opts.GPIOBackend, opts.GPIOChip, logging.GetLogger("gpio"))
			if err != nil {
				logger.Error("Failed to open GPIO backend", "backend", opts.GPIOBackend, "error", err)
				os.Exit(1)
			}

			ctrl = led.New(led.Config{
				Name:           opts.LEDName,
				Line:           opts.GPIOLine,
				Label:          opts.GPIOLabel,
				DefaultTrigger: opts.LEDDefaultTrigger,
				Flags:          opts.ledFlags(),
			}, provider, registry, logging.GetLogger("led"))

			if initErr := ctrl.Initialize(); initErr != nil {
				var ledErr *led.Error
				if errors.As(initErr, &ledErr) {
					logger.Error("LED initialization failed", "code", ledErr.Code, "line", ledErr.Line, "error", initErr)
				} else {
					logger.Error("LED initialization failed", "error", initErr)
				}
				_ = provider.Close()
				os.Exit(1)
			}

			watcher = startConfigWatcher(opts.Config, registry, timer, notifier, opts)

			notifier.Status(fmt.Sprintf("%s on line %d", ctrl.Name(), ctrl.Line()))
			notifier.Ready()

			var watchdogCtx context.Context
			watchdogCtx, stopWatchdog = context.WithCancel(context.Background())
			watchdogDone = make(chan struct{})
			go func() {
				defer close(watchdogDone)
				notifier.RunWatchdog(watchdogCtx, func() error {
					if ctrl.State() != led.StateRegistered {
						return fmt.Errorf("LED %s is %s", ctrl.Name(), ctrl.State())
					}
					return nil
				})
			}()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				ctrl.Shutdown()
				_ = provider.Close()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()

			if stopWatchdog != nil {
				stopWatchdog()
				<-watchdogDone
			}
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
			if natsBridge != nil {
				natsBridge.Stop()
			}
			if mqttBridge != nil {
				mqttBridge.Stop()
			}

			// Unregisters the LED (switching it off) and releases the line
			if ctrl != nil {
				ctrl.Shutdown()
			}
			if provider != nil {
				if closeErr := provider.Close(); closeErr != nil {
					logger.Warn("Error closing GPIO backend", "error", closeErr)
				}
			}
			if natsServer != nil {
				natsServer.Stop()
			}
			if loadCol != nil {
				loadCol.Stop()
			}
			if unsubMetrics != nil {
				unsubMetrics()
			}
		})
	})

	cli.Root().Version = version.Long()
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())
	cli.Root().AddCommand(cmd.CreateSetCmd())

	cli.Run()
}

// startNATS starts the embedded server when configured and connects the bridge.
// NATS problems are logged and leave the LED running without it.
func startNATS(opts *Options, bus *events.Bus, registry *ledclass.Registry) (*nats.Server, *nats.Bridge) {
	logger := logging.GetLogger("nats")

	var server *nats.Server
	url := opts.NATSURL
	if opts.NATSEmbedded {
		server = nats.NewServer(nats.ServerOptions{Port: opts.NATSPort, Logger: logger})
		if err := server.Start(); err != nil {
			logger.Warn("Embedded NATS server unavailable", "error", err)
			return nil, nil
		}
		url = server.ClientURL()
	}

	bridge := nats.NewBridge(url, bus, registry, logger)
	if err := bridge.Start(); err != nil {
		logger.Warn("NATS bridge unavailable", "url", url, "error", err)
		return server, nil
	}
	return server, bridge
}

// startConfigWatcher follows the config file and applies trigger, timer and
// logging changes to the running LED. Returns nil when there is nothing to watch.
func startConfigWatcher(
	path string,
	registry *ledclass.Registry,
	timer *ledclass.Timer,
	notifier *systemd.Notifier,
	opts *Options,
) *config.Watcher[config.Runtime] {
	logger := logging.GetLogger("config")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("Config file not found, hot-reload disabled", "path", path)
		return nil
	}

	watcher := config.NewConfigWatcher(path, config.LoadRuntime, logger)
	watcher.OnReload(func(rt config.Runtime) {
		notifier.Reloading()
		defer notifier.Ready()

		logging.Initialize(mergeLogging(opts.loggingConfig(), rt.Logging))

		if rt.LED.TimerDelayOn != 0 || rt.LED.TimerDelayOff != 0 {
			on, off := rt.LED.TimerDelays()
			timer.SetDelays(on, off)
		}
		if rt.LED.Trigger != "" {
			if err := registry.SetTrigger(opts.LEDName, rt.LED.Trigger); err != nil {
				logger.Warn("Failed to apply trigger from config", "trigger", rt.LED.Trigger, "error", err)
			}
		}
	})

	if err := watcher.Start(); err != nil {
		logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
		return nil
	}
	return watcher
}

// mergeLogging overlays the levels set in the config file on the startup settings.
func mergeLogging(base, file logging.Config) logging.Config {
	merged := logging.Config{
		Level:   base.Level,
		Format:  base.Format,
		Modules: make(map[string]string, len(base.Modules)),
		History: base.History,
	}
	for module, level := range base.Modules {
		merged.Modules[module] = level
	}
	if file.Level != "" {
		merged.Level = file.Level
	}
	for module, level := range file.Modules {
		merged.Modules[module] = level
	}
	return merged
}
