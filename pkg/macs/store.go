package macs

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists per-cycle counts.
type Store struct {
	*sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			cycle_id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			ended_at TIMESTAMP,
			devices INTEGER,
			signature INTEGER
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db}, nil
}

// Cycle is one recorded counting cycle.
type Cycle struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Devices   int
	Signature int
}

// RecordCycle stores a finished tally and returns the cycle id.
func (s *Store) RecordCycle(t Tally, endedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		"INSERT INTO cycles (cycle_id, started_at, ended_at, devices, signature) VALUES (?, ?, ?, ?, ?)",
		id, t.Since, endedAt, t.Devices, t.Signature)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentCycles returns up to n cycles, newest first.
func (s *Store) RecentCycles(n int) ([]Cycle, error) {
	rows, err := s.Query(
		"SELECT cycle_id, started_at, ended_at, devices, signature FROM cycles ORDER BY ended_at DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		if err := rows.Scan(&c.ID, &c.StartedAt, &c.EndedAt, &c.Devices, &c.Signature); err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}
