package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/energizer-project/craftlure/internal/api"
	"github.com/energizer-project/craftlure/internal/config"
	"github.com/energizer-project/craftlure/internal/connector"
	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/health"
	"github.com/energizer-project/craftlure/internal/network"
	"github.com/energizer-project/craftlure/internal/session"
	"github.com/energizer-project/craftlure/internal/telemetry"
	"github.com/energizer-project/craftlure/internal/util"
)

// serveOptions are the command-line overrides for the config file.
type serveOptions struct {
	configDir string
	overrides config.Overrides
}

func (o *serveOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configDir, "config", "c", config.DefaultConfigDir, "Directory holding config.json")
	fs.StringVarP(&o.overrides.WebhookURL, "webhook", "w", "", "Webhook to send logs to")
	fs.StringVarP(&o.overrides.IconPath, "server-icon", "s", "", "Path to server icon")
	fs.StringVarP(&o.overrides.ListenAddress, "listen", "l", "", "Listen address (host:port)")
	fs.StringVar(&o.overrides.TemplatePath, "status-template", "", "Path to the status response JSON")
	fs.StringVar(&o.overrides.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

func serveCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the decoy listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *opts)
		},
	}
}

// runServe loads configuration, starts the listener and every configured
// sink, and blocks until SIGINT/SIGTERM or a fatal listener error.
func runServe(parent context.Context, opts serveOptions) error {
	if err := util.InitLogger(util.LogConfig{Level: "info", Console: true}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Apply(opts.overrides)
	snap := cfg.Snapshot()

	if err := util.InitLogger(util.LogConfig{
		Level:      snap.Logging.Level,
		Directory:  snap.Logging.Directory,
		MaxBackups: snap.Logging.MaxBackups,
		Console:    snap.Logging.Console,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	fmt.Printf(banner, util.AppVersion)
	fmt.Println()

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		return fmt.Errorf("configuration validation failed, please fix the errors above")
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("version", util.AppVersion).
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("starting craftlure")

	settings, err := buildSettings(&snap)
	if err != nil {
		return err
	}
	handler, err := session.NewHandler(settings)
	if err != nil {
		return fmt.Errorf("failed to build status response: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eventBus := events.NewEventBus()
	metrics := telemetry.NewMetrics()
	eventBus.SubscribeConnections("metrics.record", metrics.OnConnectionEvent)

	var webhook *connector.WebhookConnector
	if snap.Webhook.URL != "" {
		webhook = connector.NewWebhookConnector(snap.Webhook.URL, snap.Webhook.Timeout())
		webhook.OnFailure(func(error) { metrics.DeliveryFailed("webhook") })
		webhook.Subscribe(eventBus)
		log.Info().Msg("webhook delivery enabled")
	}

	var mqttHandler *telemetry.MQTTHandler
	if snap.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(snap.MQTT, eventBus, metrics)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	tcpListener := network.NewTCPListener(snap.Listener.Address, settings.ReadTimeout, handler, eventBus, metrics)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", snap.Listener.Address).Msg("starting decoy listener")
		if err := startWithRetry(ctx, "decoy listener", tcpListener.Start, 5); err != nil {
			log.Error().Err(err).Msg("decoy listener failed after retries")
			errCh <- fmt.Errorf("decoy listener: %w", err)
		}
	}()

	if snap.API.Enabled {
		apiServer := api.NewServer(snap.API, snap.Listener.Address, metrics, snap.Logging.Level == "debug")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := startWithRetry(ctx, "API server", apiServer.Start, 5); err != nil {
				log.Warn().Err(err).Msg("API server failed after retries (non-fatal)")
			}
		}()
	}

	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	healthMgr := health.NewManager(eventBus, metrics,
		time.Duration(snap.Health.HeartbeatIntervalSec)*time.Second,
		time.Duration(snap.Health.SummaryIntervalSec)*time.Second)
	wg.Add(1)
	go func() {
		defer wg.Done()
		healthMgr.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("critical error, initiating shutdown")
	case <-parent.Done():
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Sinks still hold their connections here.
	eventBus.EmitSync(ctx, events.Event{
		Type:   events.EventShutdown,
		Source: "main",
	})
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	// Let in-flight deliveries finish before the bus goes away.
	eventBus.Stop()
	if webhook != nil {
		webhook.Close()
	}

	log.Info().Msg("craftlure stopped")
	return runErr
}

// buildSettings loads the status template and icon once. The result is
// shared read-only by every connection handler.
func buildSettings(snap *config.Config) (session.Settings, error) {
	template, err := session.ResolveStatusTemplate(snap.Status.TemplatePath)
	if err != nil {
		return session.Settings{}, err
	}

	settings := session.Settings{
		StatusTemplate:  template,
		ReadTimeout:     snap.Listener.ReadTimeout(),
		MaxPacketLength: snap.Listener.MaxPacketLength,
	}

	if snap.Status.IconPath != "" {
		favicon, err := session.LoadIcon(snap.Status.IconPath)
		if err != nil {
			return session.Settings{}, err
		}
		settings.Favicon = favicon
	}

	return settings, nil
}

// startWithRetry attempts to start a listener/server with retry on bind
// errors, waiting 3 seconds between attempts. It returns nil on success or
// the last error after all retries fail.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return nil
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
		}
	}
	return lastErr
}
