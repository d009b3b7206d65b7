// Package journal records bus traffic in a SQLite audit table. It is an
// observer built on the per-topic logger hook: attach a Recorder to a topic
// and every successful send and receive lands as one row. The bus never
// reads the journal back; it is for audit and debugging, not delivery.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mlammi/courier"
)

// Directions recorded for an entry.
const (
	DirectionSend    = "send"
	DirectionReceive = "receive"
)

// Entry is one audit record.
type Entry struct {
	ID        string
	Kind      string // message type name, as reported by Topic.Name
	Direction string
	Payload   []byte // JSON encoding of the message
	At        time.Time
}

// Recorder writes entries to a SQLite database. Safe for concurrent use.
type Recorder struct {
	db *sql.DB
}

// Open opens the journal database at path, creating the schema if needed.
// Use ":memory:" for a throwaway journal.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	r := &Recorder{db: db}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS journal (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			kind TEXT NOT NULL,
			direction TEXT NOT NULL,
			payload BLOB,
			at INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Attach installs a logger on t that records every successful send and
// receive, replacing any logger already set. Recording failures are
// dropped: the journal must never disturb delivery.
func Attach[T any](t *courier.Topic[T], r *Recorder) {
	kind := t.Name()
	t.SetLogger(func(msg *T, sent bool) {
		dir := DirectionReceive
		if sent {
			dir = DirectionSend
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			payload = nil
		}
		_ = r.record(kind, dir, payload)
	})
}

func (r *Recorder) record(kind, dir string, payload []byte) error {
	_, err := r.db.Exec(
		`INSERT INTO journal (id, kind, direction, payload, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), kind, dir, payload, time.Now().UnixNano(),
	)
	return err
}

// Entries returns all records in insertion order.
func (r *Recorder) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, direction, payload, at FROM journal ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Direction, &e.Payload, &at); err != nil {
			return nil, err
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}
