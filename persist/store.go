package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/cubescript/vm"
)

var log = commonlog.GetLogger("cubescript.persist")

// ErrSnapshotNotFound is returned by Load when no snapshot has the given ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes one saved set of persistent identifiers.
type Snapshot struct {
	ID      string
	Label   string
	Created time.Time
	Count   int
}

// Store keeps snapshots of persistent identifiers in a SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (or creates) the snapshot database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			created INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS idents (
			snapshot TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (snapshot, name)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Save records every persistent identifier of in as a new snapshot and
// returns its ID.
func (s *Store) Save(in *vm.Interp, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	entries := Collect(in)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO snapshots (id, label, created) VALUES (?, ?, ?)",
		id, label, time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO idents (snapshot, name, kind, value) VALUES (?, ?, ?, ?)",
			id, e.Name, e.Kind.String(), e.Value,
		); err != nil {
			return "", fmt.Errorf("saving %s: %w", e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	log.Debugf("saved snapshot %s with %d identifiers", id, len(entries))
	return id, nil
}

// Load writes the identifiers of snapshot id back into in. Variables that
// in does not define, and entries in refuses to write (a saved alias whose
// name is now a command or read-only variable), are logged and skipped.
func (s *Store) Load(id string, in *vm.Interp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM snapshots WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	rows, err := s.db.Query("SELECT name, kind, value FROM idents WHERE snapshot = ? ORDER BY name", id)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind, value string
		if err := rows.Scan(&name, &kind, &value); err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		if kind != vm.KindAlias.String() {
			if existing := in.Find(name); existing == nil || !existing.Kind.IsVar() {
				log.Debugf("snapshot %s: skipping unknown variable %s", id, name)
				continue
			}
		}
		if err := in.Set(name, vm.Str(value)); err != nil {
			log.Warningf("snapshot %s: skipping %s: %v", id, name, err)
		}
	}
	return rows.Err()
}

// List returns all snapshots, newest first.
func (s *Store) List() ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT s.id, s.label, s.created, COUNT(i.name)
		FROM snapshots s LEFT JOIN idents i ON i.snapshot = s.id
		GROUP BY s.id
		ORDER BY s.created DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var created int64
		if err := rows.Scan(&snap.ID, &snap.Label, &created, &snap.Count); err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		snap.Created = time.Unix(0, created)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Latest returns the ID of the most recent snapshot.
func (s *Store) Latest() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRow("SELECT id FROM snapshots ORDER BY created DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSnapshotNotFound
	}
	if err != nil {
		return "", fmt.Errorf("finding latest snapshot: %w", err)
	}
	return id, nil
}
