package haassohn

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/mqtt"
)

const defaultHealthInterval = 30 * time.Second

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// HealthSource provides the bridge state reported in health messages.
// *Bridge implements it.
type HealthSource interface {
	Health() Health
}

// HealthReporter manages periodic health status reporting.
// It publishes health messages to MQTT at regular intervals.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	source    HealthSource
	topic     string

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Source provides the bridge state.
	Source HealthSource

	// Logger is optional.
	Logger Logger
}

// NewHealthReporter creates a new health reporter.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		topic:     mqtt.Topics{}.BridgeHealth(Protocol),
		done:      make(chan struct{}),
		logger:    cfg.Logger,
	}
}

// Start publishes "starting" and then reports every interval until ctx is
// cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	if err := h.publishStatus(HealthStarting, "bridge starting"); err != nil {
		logError(h.logger, "failed to publish starting status", "error", err)
	}

	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		logError(h.logger, "failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				logError(h.logger, "failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.source == nil {
		return HealthDegraded, "no bridge attached"
	}
	health := h.source.Health()

	switch {
	case health.Phase == PhaseDisabled:
		return HealthUnhealthy, health.DisabledReason
	case h.publisher == nil || !h.publisher.IsConnected():
		return HealthDegraded, "MQTT disconnected"
	case health.ConsecutiveErrors > 0:
		return HealthDegraded, "device unreachable"
	case health.MissingState:
		return HealthDegraded, "status contains unknown states"
	case health.Polls == 0:
		return HealthStarting, "waiting for first poll"
	default:
		return HealthHealthy, ""
	}
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Bridge:        Protocol,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
	}
	if h.source != nil {
		health := h.source.Health()
		msg.Device = &health
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// QoS 1, retained
	return h.publisher.Publish(h.topic, payload, 1, true)
}
