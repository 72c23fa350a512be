package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"codetour/internal/extractor"
	"codetour/internal/graph"
	"codetour/internal/planner"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists finished knowledge models so a saved analysis can be
// re-exported without re-running the pipeline. The stored model is a plain
// copy of the in-memory value; the store never derives anything itself.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			failed INTEGER NOT NULL DEFAULT 0,
			script_entry INTEGER NOT NULL DEFAULT 0,
			imports JSON
		);`,
		`CREATE TABLE IF NOT EXISTS symbols (
			id TEXT PRIMARY KEY,
			file TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			line INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS call_edges (
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			file TEXT NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			ambiguous INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (file, line, col, to_id)
		);`,
		`CREATE TABLE IF NOT EXISTS dependency_edges (
			from_path TEXT NOT NULL,
			to_path TEXT NOT NULL,
			PRIMARY KEY (from_path, to_path)
		);`,
		`CREATE TABLE IF NOT EXISTS tour_steps (
			idx INTEGER PRIMARY KEY,
			file TEXT NOT NULL,
			reason TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveModel replaces the stored model and tour plan with the given ones.
func (s *SQLiteStore) SaveModel(ctx context.Context, m *graph.KnowledgeModel, plan *planner.TourPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"files", "symbols", "call_edges", "dependency_edges", "tour_steps"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, m.SchemaVersion); err != nil {
		return err
	}

	fileStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (path, failed, script_entry, imports) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer fileStmt.Close()
	for _, f := range m.Files {
		imports, _ := json.Marshal(f.Imports)
		if _, err := fileStmt.ExecContext(ctx, f.Path, f.Failed, f.ScriptEntry, imports); err != nil {
			return err
		}
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (id, file, name, kind, line) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer symStmt.Close()
	for _, sym := range m.Symbols {
		if _, err := symStmt.ExecContext(ctx, sym.ID, sym.File, sym.Name, string(sym.Kind), sym.Line); err != nil {
			return err
		}
	}

	callStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO call_edges (from_id, to_id, file, line, col, ambiguous) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer callStmt.Close()
	for _, e := range m.CallEdges {
		if _, err := callStmt.ExecContext(ctx, e.From, e.To, e.File, e.Line, e.Column, e.Ambiguous); err != nil {
			return err
		}
	}

	depStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dependency_edges (from_path, to_path) VALUES (?, ?)
	`)
	if err != nil {
		return err
	}
	defer depStmt.Close()
	for _, e := range m.DependencyEdges {
		if _, err := depStmt.ExecContext(ctx, e.From, e.To); err != nil {
			return err
		}
	}

	stepStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tour_steps (idx, file, reason) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stepStmt.Close()
	for _, step := range plan.Steps {
		if _, err := stepStmt.ExecContext(ctx, step.Index, step.File, step.Reason); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadModel reads back the stored model and tour plan. Rows are ordered the
// same way the builder orders them, so a save/load round-trip is lossless.
func (s *SQLiteStore) LoadModel(ctx context.Context) (*graph.KnowledgeModel, *planner.TourPlan, error) {
	m := &graph.KnowledgeModel{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&m.SchemaVersion); err != nil {
		return nil, nil, fmt.Errorf("no stored model: %w", err)
	}
	if m.SchemaVersion != graph.SchemaVersion {
		return nil, nil, fmt.Errorf("stored model has schema %s, expected %s", m.SchemaVersion, graph.SchemaVersion)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, failed, script_entry, imports FROM files ORDER BY path`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f graph.File
		var imports []byte
		if err := rows.Scan(&f.Path, &f.Failed, &f.ScriptEntry, &imports); err != nil {
			return nil, nil, err
		}
		if len(imports) > 0 {
			if err := json.Unmarshal(imports, &f.Imports); err != nil {
				return nil, nil, err
			}
		}
		m.Files = append(m.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	symRows, err := s.db.QueryContext(ctx,
		`SELECT id, file, name, kind, line FROM symbols ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer symRows.Close()
	for symRows.Next() {
		var sym graph.Symbol
		var kind string
		if err := symRows.Scan(&sym.ID, &sym.File, &sym.Name, &kind, &sym.Line); err != nil {
			return nil, nil, err
		}
		sym.Kind = extractor.SymbolKind(kind)
		m.Symbols = append(m.Symbols, sym)
	}
	if err := symRows.Err(); err != nil {
		return nil, nil, err
	}

	callRows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, file, line, col, ambiguous FROM call_edges ORDER BY file, line, col, to_id`)
	if err != nil {
		return nil, nil, err
	}
	defer callRows.Close()
	for callRows.Next() {
		var e graph.CallEdge
		if err := callRows.Scan(&e.From, &e.To, &e.File, &e.Line, &e.Column, &e.Ambiguous); err != nil {
			return nil, nil, err
		}
		m.CallEdges = append(m.CallEdges, e)
	}
	if err := callRows.Err(); err != nil {
		return nil, nil, err
	}

	depRows, err := s.db.QueryContext(ctx,
		`SELECT from_path, to_path FROM dependency_edges ORDER BY from_path, to_path`)
	if err != nil {
		return nil, nil, err
	}
	defer depRows.Close()
	for depRows.Next() {
		var e graph.DependencyEdge
		if err := depRows.Scan(&e.From, &e.To); err != nil {
			return nil, nil, err
		}
		m.DependencyEdges = append(m.DependencyEdges, e)
	}
	if err := depRows.Err(); err != nil {
		return nil, nil, err
	}

	plan := &planner.TourPlan{}
	stepRows, err := s.db.QueryContext(ctx,
		`SELECT idx, file, reason FROM tour_steps ORDER BY idx`)
	if err != nil {
		return nil, nil, err
	}
	defer stepRows.Close()
	for stepRows.Next() {
		var step planner.Step
		if err := stepRows.Scan(&step.Index, &step.File, &step.Reason); err != nil {
			return nil, nil, err
		}
		plan.Steps = append(plan.Steps, step)
	}
	if err := stepRows.Err(); err != nil {
		return nil, nil, err
	}
	for _, step := range plan.Steps {
		if step.Reason == planner.ReasonEntryPoint || step.Reason == planner.ReasonFallback {
			plan.EntryPoints = append(plan.EntryPoints, step.File)
		}
	}

	return m, plan, nil
}
