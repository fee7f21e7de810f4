package chatlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/state"
)

// Entry is one persisted chat line.
type Entry struct {
	Network   string    `db:"network"`
	Buffer    string    `db:"buffer"`
	Sender    string    `db:"sender"`
	Text      string    `db:"text"`
	Kind      int       `db:"kind"`
	Timestamp time.Time `db:"timestamp"`
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	network   TEXT NOT NULL,
	buffer    TEXT NOT NULL,
	sender    TEXT NOT NULL,
	text      TEXT NOT NULL,
	kind      INTEGER NOT NULL,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_buffer ON messages(network, buffer, timestamp);
`

// Logger appends chat lines to a SQLite database. Writes are buffered
// and flushed in batches so logging never stalls the reactor.
type Logger struct {
	db  *sqlx.DB
	cfg config.Logging

	writes chan Entry
	stop   chan struct{}
	wg     sync.WaitGroup
}

const (
	writeBufferSize = 256
	flushInterval   = 2 * time.Second
)

// Open creates (or reuses) the log database under the configured
// directory. A nil Logger is returned when logging is disabled; its
// methods are safe to call.
func Open(cfg config.Logging) (*Logger, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	dir := config.ExpandPath(cfg.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	// WAL keeps reads from blocking the single writer connection.
	db, err := sqlx.Connect("sqlite3", filepath.Join(dir, "chatlog.db")+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening chat log: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chat log schema: %w", err)
	}

	l := &Logger{
		db:     db,
		cfg:    cfg,
		writes: make(chan Entry, writeBufferSize),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.flushLoop()
	return l, nil
}

// Record queues one buffer line for persistence, honoring the
// channel/query filters. Highlights mirrors and status noise are
// always skipped; they duplicate lines logged at their source.
func (l *Logger) Record(networkName string, key state.BufferKey, msg state.Message) {
	if l == nil {
		return
	}
	switch key.Kind {
	case state.KindChannel:
		if !l.cfg.LogChannels {
			return
		}
	case state.KindQuery:
		if !l.cfg.LogQueries {
			return
		}
	default:
		return
	}

	entry := Entry{
		Network:   networkName,
		Buffer:    key.Target,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Kind:      int(msg.Kind),
		Timestamp: time.Now(),
	}
	select {
	case l.writes <- entry:
	default:
		logger.Log.Warn().Msg("chat log buffer full, dropping line")
	}
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			l.flush()
			return
		case <-ticker.C:
			l.flush()
		}
	}
}

func (l *Logger) flush() {
	var batch []Entry
	for {
		select {
		case e := <-l.writes:
			batch = append(batch, e)
		default:
			if len(batch) == 0 {
				return
			}
			_, err := l.db.NamedExec(
				`INSERT INTO messages (network, buffer, sender, text, kind, timestamp)
				 VALUES (:network, :buffer, :sender, :text, :kind, :timestamp)`, batch)
			if err != nil {
				logger.Log.Error().Err(err).Int("count", len(batch)).Msg("flushing chat log failed")
			}
			return
		}
	}
}

// Close flushes pending lines and closes the database.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	close(l.stop)
	l.wg.Wait()
	return l.db.Close()
}
