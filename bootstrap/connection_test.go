package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dbboot/config"
	"dbboot/driver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeHandle implements driver.Handle with scripted responses.
type fakeHandle struct {
	databases []string
	listErr   error
	createErr error

	listCalls   int
	createCalls []string
	useCalls    []string
	closeCalls  int
}

func (h *fakeHandle) ListDatabases(context.Context) ([]string, error) {
	h.listCalls++
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.databases, nil
}

func (h *fakeHandle) CreateDatabase(_ context.Context, name string) error {
	h.createCalls = append(h.createCalls, name)
	return h.createErr
}

func (h *fakeHandle) Use(name string) {
	h.useCalls = append(h.useCalls, name)
}

func (h *fakeHandle) Close(context.Context) error {
	h.closeCalls++
	return nil
}

// fakeDriver implements driver.Driver, handing out a scripted handle.
type fakeDriver struct {
	connectErr   error
	handle       *fakeHandle
	connectCalls int
	gotOpts      driver.ConnectOptions
}

func (d *fakeDriver) Connect(_ context.Context, opts driver.ConnectOptions) (driver.Handle, error) {
	d.connectCalls++
	d.gotOpts = opts
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return d.handle, nil
}

type outcome struct {
	err    error
	handle driver.Handle
}

func testConfig(database string) *config.Config {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 27017
	cfg.Database.Name = database
	return cfg
}

// runBootstrap starts a bootstrap and waits for the ready callback,
// also counting how many times it fires.
func runBootstrap(t *testing.T, cfg *config.Config, drv driver.Driver) (*Bootstrapper, outcome, *int32) {
	t.Helper()

	done := make(chan outcome, 2)
	var calls int32
	b, err := New(cfg, drv, zap.NewNop().Sugar(), func(err error, h driver.Handle) {
		atomic.AddInt32(&calls, 1)
		done <- outcome{err: err, handle: h}
	})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	select {
	case out := <-done:
		return b, out, &calls
	case <-time.After(5 * time.Second):
		t.Fatal("ready callback never fired")
		return nil, outcome{}, nil
	}
}

func TestNew_Validation(t *testing.T) {
	drv := &fakeDriver{handle: &fakeHandle{}}
	noop := func(error, driver.Handle) {}

	_, err := New(nil, drv, nil, noop)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = New(testConfig(""), nil, nil, noop)
	assert.ErrorIs(t, err, ErrNilDriver)

	_, err = New(testConfig(""), drv, nil, nil)
	assert.ErrorIs(t, err, ErrNilCallback)
}

func TestDatabaseName_DefaultAndExplicit(t *testing.T) {
	drv := &fakeDriver{handle: &fakeHandle{}}
	noop := func(error, driver.Handle) {}

	b, err := New(testConfig(""), drv, nil, noop)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDatabase, b.Database())

	b, err = New(testConfig("analytics"), drv, nil, noop)
	require.NoError(t, err)
	assert.Equal(t, "analytics", b.Database())
}

func TestBootstrap_ConnectFailure(t *testing.T) {
	connectErr := errors.New("E1")
	drv := &fakeDriver{connectErr: connectErr, handle: &fakeHandle{}}

	b, out, calls := runBootstrap(t, testConfig("testdb"), drv)

	assert.Same(t, connectErr, out.err)
	assert.Nil(t, out.handle)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, drv.connectCalls)
	assert.Equal(t, 0, drv.handle.listCalls)
	assert.Empty(t, drv.handle.createCalls)
	assert.Empty(t, drv.handle.useCalls)
	assert.Nil(t, b.Handle())
	assert.Equal(t, StateFailed, b.State())
}

func TestBootstrap_ListFailure(t *testing.T) {
	listErr := errors.New("permission denied on listDatabases")
	h := &fakeHandle{listErr: listErr}
	drv := &fakeDriver{handle: h}

	b, out, calls := runBootstrap(t, testConfig("testdb"), drv)

	assert.Same(t, listErr, out.err)
	assert.Nil(t, out.handle)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, h.listCalls)
	assert.Empty(t, h.createCalls)
	assert.Empty(t, h.useCalls)
	// The session is technically open but discarded as unusable.
	assert.Nil(t, b.Handle())
	assert.Equal(t, 0, h.closeCalls)
}

func TestBootstrap_DatabasePresent_SkipsCreate(t *testing.T) {
	h := &fakeHandle{databases: []string{"testdb"}}
	drv := &fakeDriver{handle: h}

	b, out, calls := runBootstrap(t, testConfig("testdb"), drv)

	require.NoError(t, out.err)
	assert.Same(t, driver.Handle(h), out.handle)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, h.createCalls)
	assert.Equal(t, []string{"testdb"}, h.useCalls)
	assert.Same(t, driver.Handle(h), b.Handle())
	assert.Equal(t, StateDone, b.State())
}

func TestBootstrap_DatabaseAbsent_CreatesThenSelects(t *testing.T) {
	h := &fakeHandle{databases: []string{"other"}}
	drv := &fakeDriver{handle: h}

	cfg := testConfig("testdb")
	cfg.Database.Host = "x"
	cfg.Database.Port = 1

	b, out, calls := runBootstrap(t, cfg, drv)

	require.NoError(t, out.err)
	assert.Equal(t, []string{"testdb"}, h.createCalls)
	assert.Equal(t, []string{"testdb"}, h.useCalls)
	assert.Same(t, driver.Handle(h), out.handle)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, StateDone, b.State())
}

func TestBootstrap_CreateFailure(t *testing.T) {
	createErr := errors.New("quota exceeded")
	h := &fakeHandle{databases: []string{"other"}, createErr: createErr}
	drv := &fakeDriver{handle: h}

	b, out, calls := runBootstrap(t, testConfig("testdb"), drv)

	assert.Same(t, createErr, out.err)
	assert.Nil(t, out.handle)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, []string{"testdb"}, h.createCalls)
	// Selection never happens after a failed create.
	assert.Empty(t, h.useCalls)
	assert.Nil(t, b.Handle())
	assert.Equal(t, StateFailed, b.State())
}

func TestBootstrap_CatalogMatchIsCaseSensitive(t *testing.T) {
	h := &fakeHandle{databases: []string{"TestDB"}}
	drv := &fakeDriver{handle: h}

	_, out, _ := runBootstrap(t, testConfig("testdb"), drv)

	require.NoError(t, out.err)
	assert.Equal(t, []string{"testdb"}, h.createCalls)
}

func TestBootstrap_DefaultDatabaseUsedWhenUnset(t *testing.T) {
	h := &fakeHandle{databases: []string{}}
	drv := &fakeDriver{handle: h}

	_, out, _ := runBootstrap(t, testConfig(""), drv)

	require.NoError(t, out.err)
	assert.Equal(t, []string{config.DefaultDatabase}, h.createCalls)
	assert.Equal(t, []string{config.DefaultDatabase}, h.useCalls)
}

func TestBootstrap_ConnectOptionsPassthrough(t *testing.T) {
	h := &fakeHandle{databases: []string{"testdb"}}
	drv := &fakeDriver{handle: h}

	cfg := testConfig("testdb")
	cfg.Database.ConnectTimeout = 3 * time.Second
	cfg.Database.MaxPoolSize = 25

	_, out, _ := runBootstrap(t, cfg, drv)

	require.NoError(t, out.err)
	assert.Equal(t, "mongodb://localhost:27017", drv.gotOpts.URI)
	assert.Equal(t, 3*time.Second, drv.gotOpts.ConnectTimeout)
	assert.Equal(t, uint64(25), drv.gotOpts.MaxPoolSize)
}

func TestBootstrap_StartTwice(t *testing.T) {
	h := &fakeHandle{databases: []string{"testdb"}}
	drv := &fakeDriver{handle: h}

	b, _, calls := runBootstrap(t, testConfig("testdb"), drv)

	err := b.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	// A rejected restart never re-fires the callback.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestBootstrap_HandleNilBeforeCompletion(t *testing.T) {
	noop := func(error, driver.Handle) {}
	drv := &fakeDriver{handle: &fakeHandle{}}

	b, err := New(testConfig("testdb"), drv, nil, noop)
	require.NoError(t, err)

	assert.Nil(t, b.Handle())
	assert.Equal(t, StateIdle, b.State())
}

func TestBootstrap_StateProgression(t *testing.T) {
	// Block the driver inside connect so the intermediate state is
	// observable from outside.
	release := make(chan struct{})
	entered := make(chan struct{})
	drv := &blockingDriver{
		entered: entered,
		release: release,
		handle:  &fakeHandle{databases: []string{"testdb"}},
	}

	done := make(chan outcome, 1)
	b, err := New(testConfig("testdb"), drv, zap.NewNop().Sugar(), func(err error, h driver.Handle) {
		done <- outcome{err: err, handle: h}
	})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	<-entered
	assert.Equal(t, StateConnecting, b.State())
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, StateDone, b.State())
}

type blockingDriver struct {
	entered chan struct{}
	release chan struct{}
	handle  *fakeHandle
}

func (d *blockingDriver) Connect(context.Context, driver.ConnectOptions) (driver.Handle, error) {
	close(d.entered)
	<-d.release
	return d.handle, nil
}
