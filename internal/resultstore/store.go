// Package resultstore persists simulation batches: full per-match results
// go into zstd-compressed JSON archives, and a small SQLite index keeps the
// headline numbers queryable without decompressing anything.
package resultstore

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"frcsim/internal/model"
	"frcsim/internal/stats"
)

// Store is a directory-backed batch archive with a SQLite index.
type Store struct {
	db  *sql.DB
	dir string
}

// Archive is the full persisted form of one batch.
type Archive struct {
	SavedAt    string                   `json:"saved_at"`
	RedLineup  []string                 `json:"red_lineup"`
	BlueLineup []string                 `json:"blue_lineup"`
	Batch      stats.Batch              `json:"batch"`
	Matches    []model.SimulationResult `json:"matches"`
}

// BatchMeta is one row of the index, newest first.
type BatchMeta struct {
	ID            int64
	CreatedAt     string
	Seed          int64
	Runs          int
	RedLineup     []string
	BlueLineup    []string
	RedWinRate    float64
	BlueWinRate   float64
	RedScoreMean  float64
	BlueScoreMean float64
	ArchivePath   string
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at      TEXT    NOT NULL,
	seed            INTEGER NOT NULL,
	runs            INTEGER NOT NULL,
	red_lineup      TEXT    NOT NULL,
	blue_lineup     TEXT    NOT NULL,
	red_win_rate    REAL    NOT NULL,
	blue_win_rate   REAL    NOT NULL,
	red_score_mean  REAL    NOT NULL,
	blue_score_mean REAL    NOT NULL,
	archive_path    TEXT    NOT NULL
);`

// Open creates or reopens a store rooted at dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty store dir")
	}
	if err := os.MkdirAll(filepath.Join(dir, "archives"), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL suits the append-only write pattern; writes are synchronous CLI
	// saves, so no background writer is needed here.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Close releases the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch archives a batch and indexes it, returning the batch id.
func (s *Store) SaveBatch(red, blue model.AllianceConfig, batch stats.Batch) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	arc := Archive{
		SavedAt:    now,
		RedLineup:  lineup(red),
		BlueLineup: lineup(blue),
		Batch:      batch,
		Matches:    batch.Matches,
	}

	name := fmt.Sprintf("batch_%d_%d.json.zst", batch.Seed, time.Now().UnixNano())
	path := filepath.Join(s.dir, "archives", name)
	if err := writeArchive(path, arc); err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO batches
		(created_at, seed, runs, red_lineup, blue_lineup,
		 red_win_rate, blue_win_rate, red_score_mean, blue_score_mean, archive_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now, batch.Seed, batch.Runs,
		strings.Join(arc.RedLineup, ","), strings.Join(arc.BlueLineup, ","),
		batch.RedWinRate, batch.BlueWinRate,
		batch.RedScore.Mean, batch.BlueScore.Mean, path)
	if err != nil {
		// The archive without its index row is an orphan; drop it.
		_ = os.Remove(path)
		return 0, fmt.Errorf("index batch: %w", err)
	}
	return res.LastInsertId()
}

// LoadBatch reads one archived batch back by id.
func (s *Store) LoadBatch(id int64) (Archive, error) {
	var path string
	err := s.db.QueryRow(`SELECT archive_path FROM batches WHERE id = ?`, id).Scan(&path)
	if err == sql.ErrNoRows {
		return Archive{}, fmt.Errorf("batch %d not found", id)
	}
	if err != nil {
		return Archive{}, err
	}
	arc, err := readArchive(path)
	if err != nil {
		return Archive{}, err
	}
	arc.Batch.Matches = arc.Matches
	return arc, nil
}

// List returns index rows, newest first.
func (s *Store) List() ([]BatchMeta, error) {
	rows, err := s.db.Query(`SELECT id, created_at, seed, runs, red_lineup, blue_lineup,
		red_win_rate, blue_win_rate, red_score_mean, blue_score_mean, archive_path
		FROM batches ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchMeta
	for rows.Next() {
		var m BatchMeta
		var red, blue string
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.Seed, &m.Runs, &red, &blue,
			&m.RedWinRate, &m.BlueWinRate, &m.RedScoreMean, &m.BlueScoreMean,
			&m.ArchivePath); err != nil {
			return nil, err
		}
		m.RedLineup = strings.Split(red, ",")
		m.BlueLineup = strings.Split(blue, ",")
		out = append(out, m)
	}
	return out, rows.Err()
}

func lineup(a model.AllianceConfig) []string {
	names := make([]string, 0, len(a.Robots))
	for _, r := range a.Robots {
		names = append(names, r.Archetype)
	}
	return names
}

func writeArchive(path string, arc Archive) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}

	// Flush and close errors mean a truncated archive; every step must
	// report, or a batch gets indexed that can never be read back.
	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := json.NewEncoder(bw).Encode(&arc); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("flush archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close compressor: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func readArchive(path string) (Archive, error) {
	var arc Archive
	f, err := os.Open(path)
	if err != nil {
		return arc, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return arc, err
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024)).Decode(&arc); err != nil {
		return arc, fmt.Errorf("decode archive: %w", err)
	}
	return arc, nil
}
