package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// MemoryKey scopes translation memory entries. The same source text can be
// cached once per language pair, backend and model.
type MemoryKey struct {
	SourceLang string
	TargetLang string
	Backend    string
	Model      string
}

func (k MemoryKey) where(sourceText string) sq.Eq {
	return sq.Eq{
		"source_text": normalizeText(sourceText),
		"source_lang": k.SourceLang,
		"target_lang": k.TargetLang,
		"backend":     k.Backend,
		"model":       k.Model,
	}
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID             string
	SourceText     string
	SourceLang     string
	TargetLang     string
	Backend        string
	Model          string
	TranslatedText string
	UsageCount     int
	Invalidated    bool
	LastUsed       time.Time
}

// MemoryFilter narrows ListMemory and ClearMemory. Empty fields match all.
type MemoryFilter struct {
	SourceLang string
	TargetLang string
	Backend    string
	Model      string
	Limit      int
}

func (f MemoryFilter) eq() sq.Eq {
	eq := sq.Eq{}
	if f.SourceLang != "" {
		eq["source_lang"] = f.SourceLang
	}
	if f.TargetLang != "" {
		eq["target_lang"] = f.TargetLang
	}
	if f.Backend != "" {
		eq["backend"] = f.Backend
	}
	if f.Model != "" {
		eq["model"] = f.Model
	}
	return eq
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	Runs           int
}

// GetCachedTranslation returns the remembered translation of sourceText,
// bumping its usage counter on a hit.
func (s *Store) GetCachedTranslation(ctx context.Context, key MemoryKey, sourceText string) (string, bool, error) {
	q, args, err := s.sq.Select("translated_text", "invalidated").
		From("translation_memory").
		Where(key.where(sourceText)).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var translated string
	var invalidated bool
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&translated, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if invalidated {
		return "", false, nil
	}

	q, args, err = s.sq.Update("translation_memory").
		Set("usage_count", sq.Expr("usage_count + 1")).
		Set("last_used", now()).
		Where(key.where(sourceText)).
		ToSql()
	if err != nil {
		return "", false, err
	}
	_, err = s.db.ExecContext(ctx, q, args...)

	return translated, true, err
}

// SaveToMemory stores or replaces the translation of sourceText.
func (s *Store) SaveToMemory(ctx context.Context, key MemoryKey, sourceText, translated string) error {
	ts := now()
	q, args, err := s.sq.Insert("translation_memory").
		Columns("id", "source_text", "source_lang", "target_lang", "backend", "model",
			"translated_text", "usage_count", "invalidated", "last_used", "created_at").
		Values(uuid.NewString(), normalizeText(sourceText), key.SourceLang, key.TargetLang, key.Backend, key.Model,
			translated, 0, false, ts, ts).
		Suffix("ON CONFLICT(source_text, source_lang, target_lang, backend, model) " +
			"DO UPDATE SET translated_text = excluded.translated_text, invalidated = FALSE, last_used = excluded.last_used").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory entry not found: %s", id)
	}
	return nil
}

// ClearMemory removes the entries matching f and returns how many went.
func (s *Store) ClearMemory(ctx context.Context, f MemoryFilter) (int64, error) {
	q, args, err := s.sq.Delete("translation_memory").Where(f.eq()).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns entries matching f, most recently used first.
func (s *Store) ListMemory(ctx context.Context, f MemoryFilter) ([]MemoryEntry, error) {
	b := s.sq.Select("id", "source_text", "source_lang", "target_lang", "backend", "model",
		"translated_text", "usage_count", "invalidated", "last_used").
		From("translation_memory").
		Where(f.eq()).
		OrderBy("last_used DESC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		var lastUsed string
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.Backend, &e.Model,
			&e.TranslatedText, &e.UsageCount, &e.Invalidated, &lastUsed); err != nil {
			return nil, err
		}
		e.LastUsed = parseTime(lastUsed)
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the translation memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&stats.Runs); err != nil {
		return nil, err
	}
	return stats, nil
}

// Memory binds the store to one MemoryKey so callers only deal with text.
type Memory struct {
	store *Store
	key   MemoryKey
}

// MemoryFor returns the translation memory view for key.
func (s *Store) MemoryFor(key MemoryKey) *Memory {
	return &Memory{store: s, key: key}
}

func (m *Memory) Lookup(ctx context.Context, source string) (string, bool, error) {
	return m.store.GetCachedTranslation(ctx, m.key, source)
}

func (m *Memory) Remember(ctx context.Context, source, translated string) error {
	return m.store.SaveToMemory(ctx, m.key, source, translated)
}
