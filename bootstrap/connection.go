package bootstrap

import (
	"context"
	"sync"
	"time"

	"dbboot/config"
	"dbboot/driver"
	"dbboot/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the observable phase of a bootstrap attempt.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateListing    State = "listing_databases"
	StateCreating   State = "creating_database"
	StateSelecting  State = "selecting_database"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ReadyFunc is the caller-supplied continuation. It is invoked exactly once
// per bootstrap attempt: with a non-nil error and nil handle on failure, or
// a nil error and a usable handle on success. Never both, never twice.
type ReadyFunc func(err error, handle driver.Handle)

// Bootstrapper drives the connection handshake to completion. One instance
// serves one attempt; it is not reusable after Start.
type Bootstrapper struct {
	cfg      *config.Config
	driver   driver.Driver
	logger   *zap.SugaredLogger
	onReady  ReadyFunc
	database string
	attempt  string

	mu        sync.Mutex
	state     State
	handle    driver.Handle
	catalog   []string
	started   bool
	delivered bool
}

// New constructs a bootstrapper for one connection attempt. The target
// database name is resolved here: the configured name, or
// config.DefaultDatabase when unset. The configuration must not be mutated
// by the caller until the ready callback has fired.
func New(cfg *config.Config, drv driver.Driver, logger *zap.SugaredLogger, onReady ReadyFunc) (*Bootstrapper, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if drv == nil {
		return nil, ErrNilDriver
	}
	if onReady == nil {
		return nil, ErrNilCallback
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Bootstrapper{
		cfg:      cfg,
		driver:   drv,
		logger:   logger,
		onReady:  onReady,
		database: cfg.EffectiveDatabase(),
		attempt:  uuid.NewString(),
		state:    StateIdle,
	}, nil
}

// Database returns the resolved target database name.
func (b *Bootstrapper) Database() string {
	return b.database
}

// State returns the current phase of the handshake.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Handle returns the established handle, nil until the handshake has
// completed successfully. After a failed attempt it stays nil: a handle
// whose handshake failed mid-flight is discarded as unusable.
func (b *Bootstrapper) Handle() driver.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateDone {
		return nil
	}
	return b.handle
}

// Start launches the handshake and returns immediately; the outcome is
// delivered through the ready callback. The context is passed through to
// every driver call unchanged — no additional deadline is imposed, and a
// hung round-trip hangs the attempt.
func (b *Bootstrapper) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.mu.Unlock()

	b.logger.Infow("Bootstrap starting",
		"attempt", b.attempt,
		"database", b.database)

	go b.run(ctx)
	return nil
}

type step struct {
	state State
	name  string
	fn    func(context.Context) error
}

// run executes the handshake steps in order. The loop body is the single
// error adapter: every fallible step funnels through one check, and the
// first failure short-circuits to the terminal error path.
func (b *Bootstrapper) run(ctx context.Context) {
	steps := []step{
		{StateConnecting, "connect", b.connect},
		{StateListing, "list_databases", b.listDatabases},
		// ensureDatabase manages the creating state itself: it only
		// applies when the target is absent from the catalog.
		{"", "ensure_database", b.ensureDatabase},
		{StateSelecting, "select_database", b.selectDatabase},
	}

	for _, s := range steps {
		if s.state != "" {
			b.setState(s.state)
		}
		start := time.Now()
		err := s.fn(ctx)
		metrics.StepDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
		if err != nil {
			b.fail(s.name, err)
			return
		}
	}

	b.finish()
}

func (b *Bootstrapper) connect(ctx context.Context) error {
	h, err := b.driver.Connect(ctx, driver.ConnectOptions{
		URI:            b.cfg.EffectiveURI(),
		ConnectTimeout: b.cfg.Database.ConnectTimeout,
		MaxPoolSize:    b.cfg.Database.MaxPoolSize,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.handle = h
	b.mu.Unlock()
	return nil
}

func (b *Bootstrapper) listDatabases(ctx context.Context) error {
	names, err := b.handle.ListDatabases(ctx)
	if err != nil {
		return err
	}
	b.catalog = names
	return nil
}

// ensureDatabase creates the target database when the catalog does not
// already contain it. Names are compared exactly; the catalog is
// case-sensitive. Creation is the one persistent side effect of a
// bootstrap: first run against a fresh server creates the database, every
// later run finds it and skips.
func (b *Bootstrapper) ensureDatabase(ctx context.Context) error {
	for _, name := range b.catalog {
		if name == b.database {
			b.logger.Debugw("Database already exists",
				"attempt", b.attempt,
				"database", b.database)
			return nil
		}
	}

	b.setState(StateCreating)
	b.logger.Infow("Database absent, creating",
		"attempt", b.attempt,
		"database", b.database)

	if err := b.handle.CreateDatabase(ctx, b.database); err != nil {
		return err
	}
	metrics.DatabasesCreated.Inc()
	return nil
}

// selectDatabase makes the target the handle's active namespace. Selection
// is non-failing at the driver boundary, so this step has no error path.
func (b *Bootstrapper) selectDatabase(context.Context) error {
	b.handle.Use(b.database)
	return nil
}

func (b *Bootstrapper) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *Bootstrapper) finish() {
	b.mu.Lock()
	if b.delivered {
		b.mu.Unlock()
		return
	}
	b.delivered = true
	b.state = StateDone
	h := b.handle
	b.mu.Unlock()

	metrics.BootstrapAttempts.WithLabelValues("success").Inc()
	b.logger.Infow("Bootstrap complete",
		"attempt", b.attempt,
		"database", b.database)

	b.onReady(nil, h)
}

// fail delivers the step's error to the callback verbatim. No wrapping, no
// retry: the caller decides whether to run a fresh bootstrap.
func (b *Bootstrapper) fail(stepName string, err error) {
	b.mu.Lock()
	if b.delivered {
		b.mu.Unlock()
		return
	}
	b.delivered = true
	b.state = StateFailed
	b.mu.Unlock()

	metrics.BootstrapAttempts.WithLabelValues("failure").Inc()
	b.logger.Errorw("Bootstrap failed",
		"attempt", b.attempt,
		"database", b.database,
		"step", stepName,
		"error", err)

	b.onReady(err, nil)
}
