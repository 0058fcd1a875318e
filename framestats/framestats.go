// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

// Package framestats records per-frame statistics of the display pipeline to
// an SQLite database. Samples are batched and written by a background
// goroutine so that recording does not slow the frame loop.
//
// Every Recorder starts a new session. The Summary() function reports the
// aggregate statistics for a session.
package framestats

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/logger"

	_ "modernc.org/sqlite"
)

// Sentinal error patterns.
const (
	DatabaseError = "framestats: %v"
	ClosedError   = "framestats: recorder is closed"
)

// DefaultFile is the name of the statistics database in the resource
// directory.
const DefaultFile = "framestats.db"

// Sample is the record of a single frame.
type Sample struct {
	Frame int64
	Time  time.Time

	// source pixels covered by the runs
	Changed int

	// number of non-empty runs
	Runs int

	Full      bool
	Unchanged bool

	// time taken for the frame to reach the panel
	Write time.Duration
}

// Config for a new Recorder.
type Config struct {
	Path string

	// number of samples written in a single transaction
	BatchSize int

	// a partial batch is written after this long
	BatchTimeout time.Duration

	// samples waiting to be written. samples are dropped when the buffer is
	// full
	ChannelBuffer int
}

// DefaultConfig returns the configuration for a database at the path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		BatchSize:     120,
		BatchTimeout:  2 * time.Second,
		ChannelBuffer: 1024,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
    session INTEGER NOT NULL,
    frame INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    changed INTEGER NOT NULL,
    runs INTEGER NOT NULL,
    full INTEGER NOT NULL,
    unchanged INTEGER NOT NULL,
    write_ns INTEGER NOT NULL,
    PRIMARY KEY (session, frame)
);
`

// Recorder writes samples to the database.
type Recorder struct {
	cfg     Config
	db      *sql.DB
	session int64

	samples chan Sample
	flush   chan chan struct{}
	stop    chan struct{}
	done    chan struct{}

	closed  atomic.Bool
	dropped atomic.Int64
}

// NewRecorder opens or creates the database and starts a new session.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, curated.Errorf(DatabaseError, err)
	}

	dsn := cfg.Path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(1000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, curated.Errorf(DatabaseError, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, curated.Errorf(DatabaseError, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, curated.Errorf(DatabaseError, err)
	}

	res, err := db.Exec("INSERT INTO sessions (started) VALUES (?)", time.Now().UnixNano())
	if err != nil {
		db.Close()
		return nil, curated.Errorf(DatabaseError, err)
	}

	session, err := res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, curated.Errorf(DatabaseError, err)
	}

	r := &Recorder{
		cfg:     cfg,
		db:      db,
		session: session,
		samples: make(chan Sample, cfg.ChannelBuffer),
		flush:   make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go r.batcher()

	logger.Logf(logger.Allow, "framestats", "session %d in %s", session, cfg.Path)

	return r, nil
}

// Session returns the session number of the recorder.
func (r *Recorder) Session() int64 {
	return r.session
}

// Dropped returns the number of samples that were not recorded because the
// channel buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Record queues a sample for writing. It never blocks.
func (r *Recorder) Record(s Sample) {
	if r.closed.Load() {
		return
	}
	select {
	case r.samples <- s:
	default:
		r.dropped.Add(1)
	}
}

// Flush blocks until all queued samples have been written.
func (r *Recorder) Flush() error {
	if r.closed.Load() {
		return curated.Errorf(ClosedError)
	}
	done := make(chan struct{})
	select {
	case r.flush <- done:
	case <-r.done:
		return curated.Errorf(ClosedError)
	}
	<-done
	return nil
}

// Close writes any queued samples and closes the database.
func (r *Recorder) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	close(r.stop)
	<-r.done

	if n := r.dropped.Load(); n > 0 {
		logger.Logf(logger.Allow, "framestats", "%d samples dropped", n)
	}

	if err := r.db.Close(); err != nil {
		return curated.Errorf(DatabaseError, err)
	}
	return nil
}

func (r *Recorder) batcher() {
	defer close(r.done)

	batch := make([]Sample, 0, r.cfg.BatchSize)
	timer := time.NewTimer(r.cfg.BatchTimeout)
	defer timer.Stop()

	write := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.write(batch); err != nil {
			logger.Log(logger.Allow, "framestats", err)
		}
		batch = batch[:0]
	}

	drain := func() {
		for {
			select {
			case s := <-r.samples:
				batch = append(batch, s)
			default:
				return
			}
		}
	}

	for {
		select {
		case s := <-r.samples:
			batch = append(batch, s)
			if len(batch) >= r.cfg.BatchSize {
				write()
				timer.Reset(r.cfg.BatchTimeout)
			}

		case <-timer.C:
			write()
			timer.Reset(r.cfg.BatchTimeout)

		case done := <-r.flush:
			drain()
			write()
			close(done)

		case <-r.stop:
			drain()
			write()
			return
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// write a batch of samples in a single transaction
func (r *Recorder) write(batch []Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return curated.Errorf(DatabaseError, err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO frames
		(session, frame, timestamp, changed, runs, full, unchanged, write_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return curated.Errorf(DatabaseError, err)
	}
	defer stmt.Close()

	for _, s := range batch {
		_, err := stmt.Exec(r.session, s.Frame, s.Time.UnixNano(), s.Changed, s.Runs,
			boolInt(s.Full), boolInt(s.Unchanged), s.Write.Nanoseconds())
		if err != nil {
			tx.Rollback()
			return curated.Errorf(DatabaseError, fmt.Sprintf("frame %d: %v", s.Frame, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return curated.Errorf(DatabaseError, err)
	}

	return nil
}

// Summary of a session.
type Summary struct {
	Session   int64
	Frames    int64
	Full      int64
	Unchanged int64

	// mean number of source pixels changed per frame
	MeanChanged float64

	MeanWrite time.Duration
	MaxWrite  time.Duration

	// time between the first and last sample
	Duration time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("session %d: %d frames (%d full, %d unchanged) mean changed %.1f write mean %v max %v over %v",
		s.Session, s.Frames, s.Full, s.Unchanged, s.MeanChanged, s.MeanWrite, s.MaxWrite, s.Duration)
}

// Summary returns the aggregate statistics for the session. Samples that are
// still queued are not included unless Flush() is called first.
func (r *Recorder) Summary(session int64) (Summary, error) {
	s := Summary{Session: session}

	var meanWrite float64
	var maxWrite, first, last int64

	err := r.db.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(full), 0),
		COALESCE(SUM(unchanged), 0),
		COALESCE(AVG(changed), 0.0),
		COALESCE(AVG(write_ns), 0.0),
		COALESCE(MAX(write_ns), 0),
		COALESCE(MIN(timestamp), 0),
		COALESCE(MAX(timestamp), 0)
		FROM frames WHERE session = ?`, session).Scan(
		&s.Frames, &s.Full, &s.Unchanged, &s.MeanChanged, &meanWrite, &maxWrite, &first, &last)
	if err != nil {
		return s, curated.Errorf(DatabaseError, err)
	}

	s.MeanWrite = time.Duration(meanWrite)
	s.MaxWrite = time.Duration(maxWrite)
	s.Duration = time.Duration(last - first)

	return s, nil
}

// Sessions returns the session numbers in the database, oldest first.
func (r *Recorder) Sessions() ([]int64, error) {
	rows, err := r.db.Query("SELECT id FROM sessions ORDER BY id")
	if err != nil {
		return nil, curated.Errorf(DatabaseError, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, curated.Errorf(DatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, curated.Errorf(DatabaseError, err)
	}

	return ids, nil
}
