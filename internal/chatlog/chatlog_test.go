package chatlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/state"
)

func openTestLogger(t *testing.T, cfg config.Logging) *Logger {
	t.Helper()
	cfg.Enabled = true
	cfg.Dir = t.TempDir()
	l, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func countRows(t *testing.T, l *Logger) int {
	t.Helper()
	var n int
	require.NoError(t, l.db.Get(&n, "SELECT COUNT(*) FROM messages"))
	return n
}

func TestRecordChannelLines(t *testing.T) {
	l := openTestLogger(t, config.Logging{LogChannels: true})
	defer l.Close()

	l.Record("libera", state.ChannelKey(0, "#go"), state.Message{Sender: "alice", Text: "hi"})
	l.flush()

	require.Equal(t, 1, countRows(t, l))
	var e Entry
	require.NoError(t, l.db.Get(&e, "SELECT network, buffer, sender, text, kind, timestamp FROM messages"))
	assert.Equal(t, "libera", e.Network)
	assert.Equal(t, "#go", e.Buffer)
	assert.Equal(t, "alice", e.Sender)
	assert.Equal(t, "hi", e.Text)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)
}

func TestQueryFilter(t *testing.T) {
	l := openTestLogger(t, config.Logging{LogChannels: true, LogQueries: false})
	defer l.Close()

	l.Record("libera", state.QueryKey(0, "alice"), state.Message{Sender: "alice", Text: "private"})
	l.Record("libera", state.ChannelKey(0, "#go"), state.Message{Sender: "bob", Text: "public"})
	l.flush()

	assert.Equal(t, 1, countRows(t, l))
}

func TestStatusAndHighlightsNeverLogged(t *testing.T) {
	l := openTestLogger(t, config.Logging{LogChannels: true, LogQueries: true})
	defer l.Close()

	l.Record("libera", state.StatusKey(0), state.Message{Text: "connected"})
	l.Record("libera", state.HighlightsKey(), state.Message{Text: "[libera] ping"})
	l.flush()

	assert.Equal(t, 0, countRows(t, l))
}

func TestDisabledLoggerIsNil(t *testing.T) {
	l, err := Open(config.Logging{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, l)

	// Nil receivers are safe.
	l.Record("libera", state.ChannelKey(0, "#go"), state.Message{})
	assert.NoError(t, l.Close())
}

func TestCloseFlushesPending(t *testing.T) {
	cfg := config.Logging{Enabled: true, Dir: t.TempDir(), LogChannels: true}
	l, err := Open(cfg)
	require.NoError(t, err)

	l.Record("libera", state.ChannelKey(0, "#go"), state.Message{Sender: "a", Text: "last words"})

	// Reopen the database after Close to prove the line hit disk.
	require.NoError(t, l.Close())
	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, countRows(t, reopened))
}
