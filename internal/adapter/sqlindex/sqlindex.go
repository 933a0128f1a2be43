// Package sqlindex implements adapter.IndexCapability on top of SQLite,
// an alternative to fsadapter's per-category _index.yaml files for
// stores whose memory counts make a directory scan expensive. It owns
// none of the memory documents themselves — Reindex reads ground truth
// through an injected adapter.MemoryCapability, typically the same
// fsadapter.FSAdapter backing the rest of the store.
package sqlindex

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/adapter"
	"github.com/yeseh/cortex/internal/logging"
	"github.com/yeseh/cortex/internal/model"
)

// Index is a SQLite-backed IndexCapability.
type Index struct {
	db       *sql.DB
	memories adapter.MemoryCapability
}

// Open opens (creating if absent) the SQLite database at path and runs
// its schema migrations. memories supplies ground truth for Reindex.
func Open(path string, memories adapter.MemoryCapability) (*Index, error) {
	timer := logging.StartTimer(logging.CategoryIndex, "sqlindex.Open")
	defer timer.Stop()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryIndex).Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite index: %w", err)
	}

	return &Index{db: db, memories: memories}, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Load assembles a CategoryIndex for path from its three constituent
// tables, returning nil if the category has never been materialized.
func (ix *Index) Load(ctx context.Context, path model.CategoryPath) (*model.CategoryIndex, error) {
	key := path.String()

	var probe int
	if err := ix.db.QueryRowContext(ctx, `SELECT 1 FROM category_nodes WHERE path = ?`, key).Scan(&probe); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load category node %q: %w", key, err)
	}

	idx := model.CategoryIndex{Path: path}

	memRows, err := ix.db.QueryContext(ctx,
		`SELECT memory_path, token_estimate, summary, updated_at, expires_at FROM category_memories WHERE category_path = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("load category memories %q: %w", key, err)
	}
	defer memRows.Close()
	for memRows.Next() {
		var rawPath string
		var tokens int
		var summary, updatedAt, expiresAt sql.NullString
		if err := memRows.Scan(&rawPath, &tokens, &summary, &updatedAt, &expiresAt); err != nil {
			return nil, err
		}
		mp, err := model.ParseMemoryPath(rawPath)
		if err != nil {
			return nil, err
		}
		entry := model.CategoryMemoryEntry{Path: mp, TokenEstimate: tokens}
		if summary.Valid {
			s := summary.String
			entry.Summary = &s
		}
		if t, ok, err := parseNullableTime(updatedAt); err != nil {
			return nil, err
		} else if ok {
			entry.UpdatedAt = &t
		}
		if t, ok, err := parseNullableTime(expiresAt); err != nil {
			return nil, err
		} else if ok {
			entry.ExpiresAt = &t
		}
		idx.Memories = append(idx.Memories, entry)
	}
	if err := memRows.Err(); err != nil {
		return nil, err
	}

	subRows, err := ix.db.QueryContext(ctx,
		`SELECT child_path, memory_count, description FROM category_subcategories WHERE parent_path = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("load category subcategories %q: %w", key, err)
	}
	defer subRows.Close()
	for subRows.Next() {
		var childPath string
		var count int
		var description sql.NullString
		if err := subRows.Scan(&childPath, &count, &description); err != nil {
			return nil, err
		}
		cp, err := model.ParseCategoryPath(childPath)
		if err != nil {
			return nil, err
		}
		entry := model.SubcategoryEntry{Path: cp, MemoryCount: count}
		if description.Valid {
			d := description.String
			entry.Description = &d
		}
		idx.Subcategories = append(idx.Subcategories, entry)
	}
	if err := subRows.Err(); err != nil {
		return nil, err
	}

	if path.IsRoot() {
		var desc sql.NullString
		err := ix.db.QueryRowContext(ctx, `SELECT description FROM category_descriptions WHERE path = ?`, key).Scan(&desc)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			idx.RootDescription = &d
		}
	}

	sortMemories(idx.Memories)
	sortSubcategories(idx.Subcategories)
	return &idx, nil
}

// Store overwrites path's rows wholesale from index, inside one
// transaction.
func (ix *Index) Store(ctx context.Context, path model.CategoryPath, index model.CategoryIndex) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := storeIndexTx(ctx, tx, path, index); err != nil {
		return err
	}
	return tx.Commit()
}

func storeIndexTx(ctx context.Context, tx *sql.Tx, path model.CategoryPath, index model.CategoryIndex) error {
	key := path.String()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO category_nodes(path) VALUES (?)`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_memories WHERE category_path = ?`, key); err != nil {
		return err
	}
	for _, e := range index.Memories {
		if err := upsertMemoryRow(ctx, tx, key, e); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_subcategories WHERE parent_path = ?`, key); err != nil {
		return err
	}
	for _, e := range index.Subcategories {
		var desc sql.NullString
		if e.Description != nil {
			desc = sql.NullString{String: *e.Description, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_subcategories(parent_path, child_path, memory_count, description) VALUES (?, ?, ?, ?)`,
			key, e.Path.String(), e.MemoryCount, desc,
		); err != nil {
			return err
		}
	}

	if path.IsRoot() {
		if index.RootDescription == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM category_descriptions WHERE path = ?`, key); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_descriptions(path, description) VALUES (?, ?)
				 ON CONFLICT(path) DO UPDATE SET description = excluded.description`,
				key, *index.RootDescription,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertMemoryRow(ctx context.Context, tx *sql.Tx, categoryKey string, e model.CategoryMemoryEntry) error {
	var summary, updatedAt, expiresAt sql.NullString
	if e.Summary != nil {
		summary = sql.NullString{String: *e.Summary, Valid: true}
	}
	if e.UpdatedAt != nil {
		updatedAt = sql.NullString{String: e.UpdatedAt.Format(time.RFC3339Nano), Valid: true}
	}
	if e.ExpiresAt != nil {
		expiresAt = sql.NullString{String: e.ExpiresAt.Format(time.RFC3339Nano), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO category_memories(category_path, memory_path, token_estimate, summary, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(category_path, memory_path) DO UPDATE SET
			token_estimate = excluded.token_estimate, summary = excluded.summary,
			updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		categoryKey, e.Path.String(), e.TokenEstimate, summary, updatedAt, expiresAt,
	)
	return err
}

func parseNullableTime(v sql.NullString) (time.Time, bool, error) {
	if !v.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp %q: %w", v.String, err)
	}
	return t, true, nil
}

func sortMemories(entries []model.CategoryMemoryEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path.String() < entries[j].Path.String() })
}

func sortSubcategories(entries []model.SubcategoryEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path.String() < entries[j].Path.String() })
}

var _ adapter.IndexCapability = (*Index)(nil)
