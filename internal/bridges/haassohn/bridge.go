package haassohn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/config"
)

const defaultPollInterval = 30 * time.Second

// Device is the stove's HTTP interface. *DeviceClient implements it.
type Device interface {
	FetchStatus(ctx context.Context) (map[string]any, error)
	SendCommand(ctx context.Context, attribute string, value any, token string) error
}

// HealthSink receives the health counters after every poll.
// *influxdb.Client implements it.
type HealthSink interface {
	WriteBridgeHealth(site string, consecutiveErrors int, connected, disabled bool)
}

// Bridge polls one stove and dispatches commands to it.
//
// A single goroutine owns the poll timer, forced polls and command
// dispatch. Every poll is scheduled only after the previous one finished.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg      config.DeviceConfig
	interval time.Duration
	siteID   string

	store    StateStore
	device   Device
	session  *Session
	differ   *Differ
	compat   *Compatibility
	recorder CommandRecorder
	observer CommandObserver
	sink     HealthSink

	commands chan Command
	timer    *time.Timer // owned by the loop goroutine
	now      func() time.Time

	// Shutdown coordination
	started   bool
	startMu   sync.Mutex
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the stove configuration.
	Config config.DeviceConfig

	// Store is the host state store.
	Store StateStore

	// Device overrides the HTTP client built from Config. Optional.
	Device Device

	// SiteID tags health telemetry.
	SiteID string

	// Logger is optional structured logger.
	Logger Logger

	// Recorder persists command outcomes. Optional.
	Recorder CommandRecorder

	// Observer is told about command outcomes. Optional.
	Observer CommandObserver

	// HealthSink receives health counters after every poll. Optional.
	HealthSink HealthSink
}

// NewBridge creates a new bridge instance.
// Call Start() to begin polling.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Config.Address == "" && opts.Device == nil {
		return nil, fmt.Errorf("device address is required")
	}

	interval := opts.Config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	device := opts.Device
	if device == nil {
		device = NewDeviceClient(opts.Config.Address, opts.Config.RequestTimeout)
	}

	allowed, allowErr := opts.Config.AllowList()
	session := NewSession(opts.Config.PIN)
	ctx, ctxCancel := context.WithCancel(context.Background())

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	return &Bridge{
		cfg:       opts.Config,
		interval:  interval,
		siteID:    opts.SiteID,
		store:     opts.Store,
		device:    device,
		session:   session,
		differ:    NewDiffer(opts.Store, session, opts.Logger),
		compat:    NewCompatibility(allowed, allowErr),
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		sink:      opts.HealthSink,
		commands:  make(chan Command, commandQueueSize),
		timer:     timer,
		now:       time.Now,
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}, nil
}

// Start launches the poll loop. The first poll runs immediately.
func (b *Bridge) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	select {
	case <-b.done:
		return ErrStopped
	default:
	}
	if b.started {
		return fmt.Errorf("bridge already started")
	}
	b.started = true

	b.wg.Add(1)
	go b.run(ctx)

	b.logInfo("bridge started",
		"address", b.cfg.Address,
		"poll_interval", b.interval.String())
	return nil
}

// Stop cancels the pending poll, aborts in-flight requests and waits for the
// loop to exit. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// Health returns a snapshot of the bridge state.
func (b *Bridge) Health() Health {
	return Health{
		SessionSnapshot: b.session.Snapshot(),
		Address:         b.cfg.Address,
		PollInterval:    b.interval.String(),
	}
}

// Health is the bridge status exposed by the API and the health reporter.
type Health struct {
	SessionSnapshot
	Address      string `json:"address"`
	PollInterval string `json:"poll_interval"`
}

// run is the poll loop. parent cancels it in addition to Stop.
func (b *Bridge) run(parent context.Context) {
	defer b.wg.Done()
	defer b.timer.Stop()

	ctx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(parent, cancel)
	defer stop()

	b.pollCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.timer.C:
			b.pollCycle(ctx)
		case cmd := <-b.commands:
			b.dispatch(ctx, cmd)
		}
	}
}

// pollCycle cancels the pending poll, polls once, publishes health and
// schedules the next poll unless the bridge is disabled.
func (b *Bridge) pollCycle(ctx context.Context) {
	b.timer.Stop()
	if b.session.Disabled() {
		return
	}

	b.poll(ctx)
	if ctx.Err() != nil {
		return
	}
	b.publishHealth(ctx)

	if !b.session.Disabled() {
		b.timer.Reset(b.interval)
	}
}

// poll fetches the status document and syncs it into the store.
func (b *Bridge) poll(ctx context.Context) {
	b.logDebug("polling device")

	doc, err := b.device.FetchStatus(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		n := b.session.RecordFailure(b.now())
		b.logError("error retrieving status", "error", err, "consecutive_errors", n)
		return
	}
	b.session.RecordSuccess(b.now())

	updates, err := b.differ.Sync(ctx, doc, "")
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		b.disable(fmt.Sprintf("syncing states: %v", err))
		return
	}

	changed := 0
	for _, u := range updates {
		if u.Changed {
			changed++
		}
	}
	b.logDebug("sync complete", "leaves", len(updates), "written", changed)
}

// publishHealth evaluates the compatibility gate and writes the health
// flags that changed.
func (b *Bridge) publishHealth(ctx context.Context) {
	errCount := b.session.ErrorCount()
	if errCount > 0 {
		b.logError("error getting device status", "counter", errCount)
	}

	b.checkCompatibility()
	disabled := b.session.Disabled()

	b.setHealthFlag(ctx, PathConnection, errCount == 0 && !disabled)
	b.setHealthFlag(ctx, PathMissingState, b.session.MissingState())
	b.setHealthFlag(ctx, PathTerminated, disabled)

	if b.sink != nil {
		b.sink.WriteBridgeHealth(b.siteID, errCount, errCount == 0 && !disabled, disabled)
	}
}

// checkCompatibility disables the bridge once both versions are known and
// the pair is not allowed.
func (b *Bridge) checkCompatibility() {
	if b.session.Disabled() {
		return
	}
	hw, sw, ok := b.session.Versions()
	if !ok {
		return
	}
	if err := b.compat.Check(hw, sw); err != nil {
		b.disable(err.Error())
		return
	}
	b.logDebug("hardware/software version supported", "key", CompatKey(hw, sw))
}

// setHealthFlag writes a health flag only when it differs from the stored
// value.
func (b *Bridge) setHealthFlag(ctx context.Context, path string, want bool) {
	current, err := b.store.GetState(ctx, path)
	if err != nil {
		b.logError("reading health flag failed", "path", path, "error", err)
		return
	}
	if current != nil && current.Value == want {
		return
	}
	if err := b.store.SetState(ctx, path, want, true); err != nil {
		b.logError("writing health flag failed", "path", path, "error", err)
	}
}

func (b *Bridge) disable(reason string) {
	if b.session.Disable(reason) {
		b.logError("critical error, disabling the bridge", "reason", reason)
	}
}

// Logging helpers.

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	logDebug(b.logger, msg, keysAndValues...)
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	logInfo(b.logger, msg, keysAndValues...)
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	logWarn(b.logger, msg, keysAndValues...)
}

func (b *Bridge) logError(msg string, keysAndValues ...any) {
	logError(b.logger, msg, keysAndValues...)
}
