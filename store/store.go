// Package store persists scored documents and their results in SQLite.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cgs-engine/backend/engine"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS score_results (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	source                TEXT NOT NULL DEFAULT '',
	content_hash          TEXT NOT NULL,
	document              TEXT NOT NULL,
	target_keyword        TEXT NOT NULL DEFAULT '',
	domain_authority      INTEGER,
	meta_description      TEXT NOT NULL DEFAULT '',
	composite_score       INTEGER NOT NULL,
	trust_authority       INTEGER NOT NULL,
	structural_compliance INTEGER NOT NULL,
	technical_readiness   INTEGER NOT NULL,
	semantic_depth        INTEGER NOT NULL,
	risk_level            TEXT NOT NULL,
	recommendations       TEXT NOT NULL,
	language              TEXT NOT NULL DEFAULT '',
	created_at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_results_created ON score_results(created_at);
CREATE INDEX IF NOT EXISTS idx_score_results_risk ON score_results(risk_level);
CREATE INDEX IF NOT EXISTS idx_score_results_hash ON score_results(content_hash);
`

// Config holds store configuration
type Config struct {
	DataDir    string
	FileName   string
	MaxResults int
}

// DefaultConfig returns the store defaults rooted at dataDir
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:    dataDir,
		FileName:   "cgs.db",
		MaxResults: 100,
	}
}

// Record is one persisted document/result pair
type Record struct {
	ID        int64              `json:"id"`
	Source    string             `json:"source,omitempty"`
	Hash      string             `json:"contentHash"`
	Document  string             `json:"document,omitempty"`
	Metadata  engine.Metadata    `json:"metadata"`
	Result    engine.ScoreResult `json:"result"`
	Language  string             `json:"language,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ListOptions filters List queries
type ListOptions struct {
	Limit int
	Level string
}

// BandCount is the number of stored results in one risk band
type BandCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// Store is the SQLite-backed result store
type Store struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Open creates the data directory and database if needed and applies the schema
func Open(cfg Config) (*Store, error) {
	if cfg.FileName == "" {
		cfg.FileName = "cgs.db"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.DataDir, cfg.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, cfg: cfg, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// HashContent returns the hex SHA-256 of a document
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Save stores a record and returns its id. ID, Hash and CreatedAt are filled in.
func (s *Store) Save(ctx context.Context, rec *Record) (int64, error) {
	recs, err := json.Marshal(rec.Result.Recommendations)
	if err != nil {
		return 0, fmt.Errorf("failed to encode recommendations: %w", err)
	}

	rec.Hash = HashContent(rec.Document)
	rec.CreatedAt = s.now().UTC()

	var da sql.NullInt64
	if rec.Metadata.DomainAuthority != nil {
		da = sql.NullInt64{Int64: int64(*rec.Metadata.DomainAuthority), Valid: true}
	}

	b := rec.Result.Breakdown
	res, err := s.db.ExecContext(ctx, `INSERT INTO score_results (
		source, content_hash, document, target_keyword, domain_authority, meta_description,
		composite_score, trust_authority, structural_compliance, technical_readiness, semantic_depth,
		risk_level, recommendations, language, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.Hash, rec.Document, rec.Metadata.TargetKeyword, da, rec.Metadata.MetaDescription,
		rec.Result.CompositeScore, b.TrustAuthority, b.StructuralCompliance, b.TechnicalReadiness, b.SemanticDepth,
		rec.Result.RiskBand.Level, string(recs), rec.Language, rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read result id: %w", err)
	}
	rec.ID = id
	return id, nil
}

const selectColumns = `id, source, content_hash, document, target_keyword, domain_authority, meta_description,
	composite_score, trust_authority, structural_compliance, technical_readiness, semantic_depth,
	risk_level, recommendations, language, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		da        sql.NullInt64
		level     string
		recs      string
		createdAt string
	)
	b := &rec.Result.Breakdown
	if err := row.Scan(
		&rec.ID, &rec.Source, &rec.Hash, &rec.Document, &rec.Metadata.TargetKeyword, &da, &rec.Metadata.MetaDescription,
		&rec.Result.CompositeScore, &b.TrustAuthority, &b.StructuralCompliance, &b.TechnicalReadiness, &b.SemanticDepth,
		&level, &recs, &rec.Language, &createdAt,
	); err != nil {
		return nil, err
	}

	if da.Valid {
		v := int(da.Int64)
		rec.Metadata.DomainAuthority = &v
	}
	band, ok := engine.BandByLevel(level)
	if !ok {
		band = engine.Classify(rec.Result.CompositeScore)
	}
	rec.Result.RiskBand = band

	rec.Result.Recommendations = []engine.Recommendation{}
	if err := json.Unmarshal([]byte(recs), &rec.Result.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	rec.CreatedAt = t
	return &rec, nil
}

// Get returns the record with the given id
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM score_results WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result %d: %w", id, err)
	}
	return rec, nil
}

// List returns the most recent records, newest first. Documents are omitted.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	query := `SELECT ` + selectColumns + ` FROM score_results`
	args := []any{}
	if opts.Level != "" {
		query += ` WHERE risk_level = ?`
		args = append(args, opts.Level)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Document = ""
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Stats returns the number of stored results per risk band, in band order
func (s *Store) Stats(ctx context.Context) ([]BandCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM score_results GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[level] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]BandCount, 0, len(engine.Bands()))
	for _, band := range engine.Bands() {
		out = append(out, BandCount{Level: band.Level, Count: counts[band.Level]})
	}
	return out, nil
}
