package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - runs and rewrites tables
const currentSchemaVersion = 1

// Journal persists rewrite runs to SQLite. One row per run plus one
// row per applied rewrite, written atomically when the run finishes.
// WAL mode keeps reads available while a run commits.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path. Pragmas and the
// schema are applied on every call; opening an existing journal is a
// no-op beyond that.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// configRecord is the serializable slice of a driver Config.
type configRecord struct {
	TopDown        bool `json:"top_down"`
	RegionSimplify bool `json:"region_simplify"`
	MaxIterations  int  `json:"max_iterations"`
	MaxRewrites    int  `json:"max_rewrites"`
}

// Begin opens a run record over root and returns the reporter to hand
// to the driver, directly or inside a Multi. The record is written in
// one transaction when the driver fires Finished; Err reports how
// that write went. ctx bounds the write.
func (j *Journal) Begin(ctx context.Context, root *ir.Node, cfg rewrite.Config) *Recorder {
	return &Recorder{
		j:       j,
		ctx:     ctx,
		runID:   uuid.Must(uuid.NewV7()).String(),
		root:    root,
		op:      root.Op(),
		started: time.Now().UTC(),
		before:  ir.Fingerprint(root),
		cfg: configRecord{
			TopDown:        cfg.TopDown,
			RegionSimplify: cfg.RegionSimplify,
			MaxIterations:  cfg.MaxIterations,
			MaxRewrites:    cfg.MaxRewrites,
		},
	}
}

// Recorder accumulates one run's events in memory and commits them to
// the journal when the run finishes. Reporter calls carry no error
// channel, so write failures surface through Err.
type Recorder struct {
	j       *Journal
	ctx     context.Context
	runID   string
	root    *ir.Node
	op      ir.OpName
	started time.Time
	before  string
	cfg     configRecord

	events []rewrite.Event
	err    error
	done   bool
}

// RunID returns the UUID identifying this run in the journal.
func (r *Recorder) RunID() string { return r.runID }

// Err reports whether committing the record failed. Meaningful once
// the run has finished.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) RoundStarted(round, pending int) {}

func (r *Recorder) RewriteApplied(ev rewrite.Event) {
	r.events = append(r.events, ev)
}

func (r *Recorder) RegionsSimplified(round int, stats rewrite.SimplifyStats) {}

func (r *Recorder) RoundFinished(round int, changed bool) {}

func (r *Recorder) Finished(res rewrite.Result) {
	if r.done {
		return
	}
	r.done = true
	r.err = r.j.writeRun(r.ctx, r, res)
}

func (j *Journal) writeRun(ctx context.Context, r *Recorder, res rewrite.Result) error {
	cfgJSON, err := json.Marshal(r.cfg)
	if err != nil {
		return fmt.Errorf("journal run %s: marshal config: %w", r.runID, err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal run %s: begin tx: %w", r.runID, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, started_at, finished_at, root_op, config, outcome, iterations, rewrites, folds, applied, changed, fingerprint_before, fingerprint_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.runID,
		r.started.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(r.op),
		string(cfgJSON),
		res.Outcome.String(),
		res.Iterations,
		res.Rewrites,
		res.Folds,
		res.Applied,
		res.Changed,
		r.before,
		ir.Fingerprint(r.root),
	)
	if err != nil {
		return fmt.Errorf("journal run %s: insert run: %w", r.runID, err)
	}

	for seq, ev := range r.events {
		pattern := sql.NullString{}
		if ev.Pattern != "" {
			pattern = sql.NullString{String: ev.Pattern, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rewrites
			(run_id, seq, iteration, kind, pattern, op, node)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			r.runID,
			seq,
			ev.Round,
			ev.Kind.String(),
			pattern,
			string(ev.Op),
			ev.Node.String(),
		)
		if err != nil {
			return fmt.Errorf("journal run %s: insert rewrite %d: %w", r.runID, seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal run %s: commit: %w", r.runID, err)
	}
	return nil
}
