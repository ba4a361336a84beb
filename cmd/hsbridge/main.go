// hsbridge connects a Haas+Sohn pellet stove to the Gray Logic state store.
//
// It polls the stove's local HTTP interface, mirrors every reported value
// into the host state store (persisted in SQLite), and forwards commands
// written to the store back to the stove. MQTT, InfluxDB and the REST API are
// optional outer surfaces over the same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-haassohn/internal/api"
	"github.com/nerrad567/gray-logic-haassohn/internal/bridges/haassohn"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-haassohn/internal/state"
	"github.com/nerrad567/gray-logic-haassohn/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configPathEnv     = "HSBRIDGE_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// Deferred Close/Stop calls run in reverse order of startup.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting hsbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"device", cfg.Device.String(),
		"level", cfg.Logging.Level,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	objects, err := state.DefaultObjects()
	if err != nil {
		return fmt.Errorf("loading object schema: %w", err)
	}
	repo := state.NewSQLiteRepository(db.DB)
	registry := state.NewRegistry(objects, repo)
	registry.SetLogger(log.With("component", "state"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading state cache: %w", refreshErr)
	}

	// Optional outer surfaces; assigned only when the dependency is live.
	var (
		observer   haassohn.CommandObserver
		healthSink haassohn.HealthSink
		link       *haassohn.MQTTLink
		mqttClient *mqtt.Client
	)

	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		link, err = haassohn.NewMQTTLink(mqttClient, registry, log.With("component", "mqttlink"))
		if err != nil {
			return fmt.Errorf("creating MQTT link: %w", err)
		}
		observer = link
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		healthSink = influxClient
		registry.Subscribe(haassohn.TelemetryListener(influxClient, cfg.Site.ID))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	bridge, err := haassohn.NewBridge(haassohn.BridgeOptions{
		Config:     cfg.Device,
		Store:      registry,
		SiteID:     cfg.Site.ID,
		Logger:     log.With("component", "haassohn"),
		Recorder:   repo,
		Observer:   observer,
		HealthSink: healthSink,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	registry.Subscribe(bridge.HandleChange)

	if link != nil {
		registry.Subscribe(link.HandleChange)
		if startErr := link.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT link: %w", startErr)
		}

		reporter := haassohn.NewHealthReporter(haassohn.HealthReporterConfig{
			Version:   version,
			Interval:  cfg.Device.PollInterval,
			Publisher: mqttClient,
			Source:    bridge,
			Logger:    log.With("component", "health"),
		})
		reporter.Start(ctx)
		defer func() {
			log.Info("stopping health reporter")
			reporter.Stop()
		}()
	}

	var srv *api.Server
	if cfg.API.Enabled {
		var apiErr error
		srv, apiErr = api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.With("component", "api"),
			Registry: registry,
			Commands: repo,
			Bridge:   bridge,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient, srv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal", "address", cfg.Device.Address)
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns HSBRIDGE_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections. mqttClient, influxClient
// and srv are nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, srv *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if srv != nil {
		if err := srv.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	return nil
}
