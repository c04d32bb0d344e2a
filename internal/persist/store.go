package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/logger"
)

// Store keeps the history of completed generations in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new SQLite-backed persistence store at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS generations (
			id             TEXT PRIMARY KEY,
			variant_id     TEXT NOT NULL,
			template_id    TEXT NOT NULL,
			html           TEXT NOT NULL,
			elapsed_ms     INTEGER NOT NULL DEFAULT 0,
			retried_slots  TEXT,
			warnings       TEXT,
			created_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS generation_slots (
			generation_id  TEXT NOT NULL,
			position       INTEGER NOT NULL,
			slot_id        TEXT NOT NULL,
			text           TEXT,
			char_count     INTEGER NOT NULL,
			attempts       INTEGER NOT NULL,
			within_bounds  INTEGER NOT NULL,
			min_chars      INTEGER NOT NULL,
			max_chars      INTEGER NOT NULL,
			PRIMARY KEY (generation_id, position),
			FOREIGN KEY (generation_id) REFERENCES generations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
		CREATE INDEX IF NOT EXISTS idx_generations_variant ON generations(variant_id);
	`)
	return err
}

// SaveGeneration stores a generation and its slots in one transaction.
func (s *Store) SaveGeneration(ctx context.Context, g *Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO generations (id, variant_id, template_id, html, elapsed_ms, retried_slots, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.VariantID, g.TemplateID, g.HTML, g.ElapsedMS,
		toJSON(g.RetriedSlots), toJSON(g.Warnings), formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}

	for i, slot := range g.Slots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO generation_slots (generation_id, position, slot_id, text, char_count, attempts, within_bounds, min_chars, max_chars)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, g.ID, i, slot.SlotID, slot.Text, slot.CharCount, slot.Attempts, boolInt(slot.WithinBounds), slot.Min, slot.Max)
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", slot.SlotID, err)
		}
	}

	return tx.Commit()
}

// RecordGeneration stores a completed document from the pipeline.
func (s *Store) RecordGeneration(ctx context.Context, rec generate.Record) error {
	g := &Generation{
		ID:           rec.RequestID,
		VariantID:    rec.VariantID,
		TemplateID:   rec.TemplateID,
		HTML:         rec.HTML,
		ElapsedMS:    rec.ElapsedMS,
		RetriedSlots: rec.RetriedSlots,
		Warnings:     rec.Warnings,
		CreatedAt:    rec.CreatedAt,
	}
	for _, slot := range rec.Slots {
		g.Slots = append(g.Slots, GenerationSlot{
			SlotID:       slot.SlotID,
			Text:         slot.Text,
			CharCount:    slot.CharCount,
			Attempts:     slot.Attempts,
			WithinBounds: slot.WithinBounds,
			Min:          slot.Bounds.Min,
			Max:          slot.Bounds.Max,
		})
	}
	if err := s.SaveGeneration(ctx, g); err != nil {
		return err
	}
	logger.Debug("[Persist] stored generation %s (%d slots)", g.ID, len(g.Slots))
	return nil
}

// GetGeneration loads one generation with its slots. It returns
// sql.ErrNoRows for an unknown id.
func (s *Store) GetGeneration(id string) (*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, variant_id, template_id, html, elapsed_ms, retried_slots, warnings, created_at
		FROM generations
		WHERE id = ?
	`, id)
	g, err := scanGeneration(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT slot_id, text, char_count, attempts, within_bounds, min_chars, max_chars
		FROM generation_slots
		WHERE generation_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var slot GenerationSlot
		var text sql.NullString
		var within int
		if err := rows.Scan(&slot.SlotID, &text, &slot.CharCount, &slot.Attempts, &within, &slot.Min, &slot.Max); err != nil {
			return nil, err
		}
		slot.Text = text.String
		slot.WithinBounds = within != 0
		g.Slots = append(g.Slots, slot)
	}
	return g, rows.Err()
}

func scanGeneration(row scanner) (*Generation, error) {
	var g Generation
	var retried, warnings sql.NullString
	var createdAt string

	err := row.Scan(&g.ID, &g.VariantID, &g.TemplateID, &g.HTML, &g.ElapsedMS, &retried, &warnings, &createdAt)
	if err != nil {
		return nil, err
	}
	if retried.Valid {
		_ = fromJSON(retried.String, &g.RetriedSlots)
	}
	if warnings.Valid {
		_ = fromJSON(warnings.String, &g.Warnings)
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		g.CreatedAt = t
	}
	return &g, nil
}

// ListGenerations returns the newest generations first.
func (s *Store) ListGenerations(limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT g.id, g.variant_id, g.template_id, g.elapsed_ms, g.created_at,
			COUNT(gs.slot_id), COALESCE(SUM(CASE WHEN gs.within_bounds = 0 THEN 1 ELSE 0 END), 0)
		FROM generations g
		LEFT JOIN generation_slots gs ON gs.generation_id = g.id
		GROUP BY g.id
		ORDER BY g.created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.VariantID, &sum.TemplateID, &sum.ElapsedMS, &createdAt, &sum.SlotCount, &sum.Violations); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			sum.CreatedAt = t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// PruneBefore deletes generations created before cutoff and returns how
// many were removed.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := formatTime(cutoff)
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM generation_slots
		WHERE generation_id IN (SELECT id FROM generations WHERE created_at < ?)
	`, ts); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM generations WHERE created_at < ?`, ts)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("[Persist] pruned %d generations older than %s", n, cutoff.Format("2006-01-02"))
	}
	return n, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
