package sentry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Flush(time.Duration) bool     { return true }
func (t *recordingTransport) Configure(sentry.ClientOptions) {}
func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTransport) snapshot() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func newTestClient(t *testing.T) (*Client, *recordingTransport) {
	tr := &recordingTransport{}
	c, err := New(&Config{
		DSN:       "https://public@sentry.example.com/1",
		Tags:      map[string]string{"service": "gacha"},
		transport: tr,
	})
	require.NoError(t, err)
	return c, tr
}

func TestClient_CaptureErrorWithTags(t *testing.T) {
	c, tr := newTestClient(t)

	id := c.CaptureError(errors.New("draw failed"), map[string]string{"banner_id": "1"})
	require.NotNil(t, id)

	events := tr.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Tags["banner_id"])
	assert.Equal(t, "gacha", events[0].Tags["service"])
	assert.Equal(t, uint64(1), c.Stats().EventsCaptured)

	// 标签只作用于单次上报
	c.CaptureMessage("plain", LevelWarning, nil)
	events = tr.snapshot()
	require.Len(t, events, 2)
	_, leaked := events[1].Tags["banner_id"]
	assert.False(t, leaked)
}

func TestClient_DisabledWithoutDSN(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	c.CaptureError(errors.New("ignored"), nil)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.Nil(t, c.CaptureError(errors.New("after close"), nil))
}

func TestClient_LoggerHook(t *testing.T) {
	c, tr := newTestClient(t)

	core, logs := observer.New(zap.InfoLevel)
	log := logger.NewWithCore(core, logger.WithHooks(c.LoggerHook()))

	log.Info("not forwarded")
	log.Error("commit failed", "error", errors.New("connection reset"), "user_id", "42")

	assert.Equal(t, 2, logs.Len())
	events := tr.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "42", events[0].Tags["user_id"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "connection reset", events[0].Exception[len(events[0].Exception)-1].Value)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (*Config)(nil).Validate(), ErrNilConfig)
	assert.ErrorIs(t, (&Config{SampleRate: 2}).Validate(), ErrInvalidConfig)
}
