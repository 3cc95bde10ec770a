package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/metacrawl/internal/model"
)

// FileName is the database file created under the data directory.
const FileName = "metacrawl.db"

// timestampLayout is fixed-width so that text ordering equals time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SnapshotDB stores crawl snapshots for later comparison.
type SnapshotDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures SnapshotDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the snapshot database in dbDir.
// With CreateIfNotExists false, a missing database is an error.
func Open(dbDir string, opts Options) (*SnapshotDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer; the crawl saves a single snapshot at the end.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SnapshotDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (s *SnapshotDB) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SnapshotDB) Close() error {
	return s.db.Close()
}

func (s *SnapshotDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		deck_count INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);

	-- One row per ranked deck, so trends can be read without decoding JSON.
	CREATE TABLE IF NOT EXISTS deck_stats (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		deck_name TEXT NOT NULL,
		share REAL NOT NULL,
		player_count INTEGER NOT NULL,
		games INTEGER NOT NULL,
		winrate REAL NOT NULL,
		PRIMARY KEY (snapshot_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_deck_stats_name ON deck_stats(deck_name);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot stores the snapshot and its per-deck rows in one transaction.
func (s *SnapshotDB) SaveSnapshot(ctx context.Context, snap *model.Snapshot) (err error) {
	if snap == nil {
		return errors.New("snapshot is nil")
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, origin, timestamp, deck_count, snapshot_json) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Origin, formatTimestamp(snap.CrawledAt), len(snap.Decks), string(snapJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO deck_stats (snapshot_id, rank, deck_name, share, player_count, games, winrate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare deck stats: %w", err)
	}
	defer stmt.Close()

	for i, d := range snap.Decks {
		if _, err = stmt.ExecContext(ctx, snap.ID, i+1, d.Name, d.Share, d.PlayerCount, d.Games, d.WinRate); err != nil {
			return fmt.Errorf("failed to save deck %q: %w", d.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshots returns up to n snapshots, newest first.
func (s *SnapshotDB) GetLatestSnapshots(ctx context.Context, n int) ([]*model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT snapshot_json FROM snapshots
	ORDER BY timestamp DESC, rowid DESC
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*model.Snapshot
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap, err := decodeSnapshot(raw)
		if err != nil {
			continue // skip malformed rows
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// GetSnapshotByID returns the snapshot with the given ID, or nil when
// there is none.
func (s *SnapshotDB) GetSnapshotByID(ctx context.Context, id string) (*model.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot_json FROM snapshots WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeSnapshot(raw)
}

// SnapshotMetadata summarizes a stored snapshot without decoding it.
type SnapshotMetadata struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
	DeckCount int       `json:"deck_count"`

	// TopDeck is the name of the rank-1 deck, empty when the snapshot has none.
	TopDeck string `json:"top_deck"`
}

// GetSnapshotHistoryWithMetadata lists every stored snapshot, newest first.
func (s *SnapshotDB) GetSnapshotHistoryWithMetadata(ctx context.Context) ([]SnapshotMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT s.id, s.origin, s.timestamp, s.deck_count, COALESCE(d.deck_name, '')
	FROM snapshots s
	LEFT JOIN deck_stats d ON d.snapshot_id = s.id AND d.rank = 1
	ORDER BY s.timestamp DESC, s.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot history: %w", err)
	}
	defer rows.Close()

	var results []SnapshotMetadata
	for rows.Next() {
		var meta SnapshotMetadata
		var ts string
		if err := rows.Scan(&meta.ID, &meta.Origin, &ts, &meta.DeckCount, &meta.TopDeck); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(ts)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// TrendPoint is one deck's standing in one snapshot.
type TrendPoint struct {
	SnapshotID  string    `json:"snapshot_id"`
	Timestamp   time.Time `json:"timestamp"`
	Rank        int       `json:"rank"`
	Share       float64   `json:"share"`
	PlayerCount int       `json:"player_count"`
	Games       int       `json:"games"`
	WinRate     float64   `json:"winrate"`
}

// GetDeckTrend returns the deck's standing in every snapshot that ranked it,
// oldest first.
func (s *SnapshotDB) GetDeckTrend(ctx context.Context, deckName string) ([]TrendPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT d.snapshot_id, s.timestamp, d.rank, d.share, d.player_count, d.games, d.winrate
	FROM deck_stats d
	JOIN snapshots s ON s.id = d.snapshot_id
	WHERE d.deck_name = ?
	ORDER BY s.timestamp ASC, s.rowid ASC
	`, deckName)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		var ts string
		if err := rows.Scan(&p.SnapshotID, &ts, &p.Rank, &p.Share, &p.PlayerCount, &p.Games, &p.WinRate); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		p.Timestamp = parseTimestamp(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

func decodeSnapshot(raw string) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Decks == nil {
		snap.Decks = []model.Deck{}
	}
	return &snap, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp returns the zero time for unparseable input.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
