package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sttbench/internal/config"
	"sttbench/internal/metrics"
)

// Run kinds.
const (
	KindEvaluate   = "evaluate"
	KindTranscribe = "transcribe"
	KindStress     = "stress"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run describes one stored run.
type Run struct {
	ID         string
	Kind       string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Skipped    int
	Failed     int
}

// Finished reports whether the run was closed.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// LatencySample is one provider call. Batch transcription stores only
// successful calls with Stage 0; stress stages store every call.
type LatencySample struct {
	Provider string
	// Stage is the concurrency of the stress stage, or 0.
	Stage    int
	File     string
	Duration time.Duration
	// Audio is the duration of the submitted audio when known.
	Audio time.Duration
	// Err is empty for successful calls.
	Err string
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open connects to the results database named by cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.ResultsDBPath())
}

// OpenPath initializes or connects to the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginRun records the start of a run and returns it.
func (s *Store) BeginRun(ctx context.Context, kind, source string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, kind, source, started_at) VALUES (?, ?, ?, ?)`,
			run.ID, run.Kind, nullableString(run.Source), run.StartedAt.Format(timeLayout),
		)
		return err
	})
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counts of a run.
func (s *Store) FinishRun(ctx context.Context, id string, processed, skipped, failed int) error {
	finished := time.Now().UTC().Format(timeLayout)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ? WHERE id = ?`,
			finished, processed, skipped, failed, id,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = "id, kind, source, started_at, finished_at, processed, skipped, failed"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		source      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Kind, &source, &startedRaw, &finishedRaw, &run.Processed, &run.Skipped, &run.Failed); err != nil {
		return Run{}, err
	}
	run.Source = source.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

// Runs lists runs, newest first. An empty kind lists every kind.
func (s *Store) Runs(ctx context.Context, kind string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY started_at DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// LatestRun returns the most recent finished run of kind, or nil.
func (s *Store) LatestRun(ctx context.Context, kind string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE kind = ? AND finished_at IS NOT NULL ORDER BY started_at DESC LIMIT 1`,
		kind,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &run, nil
}

// SaveRecords inserts records for a run in one transaction.
func (s *Store) SaveRecords(ctx context.Context, runID string, records []metrics.Record) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin records tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (
            run_id, sample_id, method, language, numbers, modifier, accent, noise, mode, degenerate,
            ground_truth, hypothesis,
            error_rate, recognition_rate, sentence_error, number_accuracy, segmentation_accuracy,
            gt_numbers, hyp_numbers
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare record insert: %w", err)
		}
		defer stmt.Close()

		vocabStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO record_vocabularies (record_id, vocabulary, in_reference, matched) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare vocabulary insert: %w", err)
		}
		defer vocabStmt.Close()

		for _, rec := range records {
			res, err := stmt.ExecContext(ctx,
				runID,
				rec.SampleID,
				rec.Method,
				rec.Key.Language,
				boolToInt(rec.Key.Numbers),
				int(rec.Key.Modifier),
				nullableString(rec.Key.Accent),
				rec.Key.Noise,
				rec.Mode.String(),
				boolToInt(rec.Degenerate),
				rec.GroundTruth,
				rec.Hypothesis,
				nullableMetric(rec, metrics.MetricErrorRate),
				nullableMetric(rec, metrics.MetricRecognitionRate),
				nullableMetric(rec, metrics.MetricSentenceError),
				nullableMetric(rec, metrics.MetricNumberAccuracy),
				nullableMetric(rec, metrics.MetricSegmentationAccuracy),
				encodeList(rec.GTNumbers),
				encodeList(rec.HypNumbers),
			)
			if err != nil {
				return fmt.Errorf("insert record %s/%s: %w", rec.SampleID, rec.Method, err)
			}
			if len(rec.Vocabulary) == 0 {
				continue
			}
			recordID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("record id %s/%s: %w", rec.SampleID, rec.Method, err)
			}
			for _, name := range slices.Sorted(maps.Keys(rec.Vocabulary)) {
				v := rec.Vocabulary[name]
				if _, err := vocabStmt.ExecContext(ctx, recordID, name, encodeList(v.InReference), encodeList(v.Matched)); err != nil {
					return fmt.Errorf("insert vocabulary %s for %s/%s: %w", name, rec.SampleID, rec.Method, err)
				}
			}
		}
		return tx.Commit()
	})
}

// Records loads every record of a run, ordered by sample then method.
func (s *Store) Records(ctx context.Context, runID string) ([]metrics.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
            id, sample_id, method, language, numbers, modifier, accent, noise, mode, degenerate,
            ground_truth, hypothesis,
            error_rate, recognition_rate, sentence_error, number_accuracy, segmentation_accuracy,
            gt_numbers, hyp_numbers
        FROM records WHERE run_id = ? ORDER BY sample_id, method`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var (
		out []metrics.Record
		ids = make(map[int64]int)
	)
	for rows.Next() {
		var (
			id                            int64
			rec                           metrics.Record
			numbers, degenerate, modifier int
			accent, mode                  sql.NullString
			errRate, recRate, sentErr     sql.NullFloat64
			numAcc, segAcc                sql.NullFloat64
			gtNums, hypNums               sql.NullString
		)
		if err := rows.Scan(
			&id, &rec.SampleID, &rec.Method, &rec.Key.Language, &numbers, &modifier, &accent, &rec.Key.Noise, &mode, &degenerate,
			&rec.GroundTruth, &rec.Hypothesis,
			&errRate, &recRate, &sentErr, &numAcc, &segAcc,
			&gtNums, &hypNums,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Key.Numbers = numbers != 0
		rec.Key.Modifier = categoryModifier(modifier)
		rec.Key.Accent = accent.String
		if mode.String == metrics.Characters.String() {
			rec.Mode = metrics.Characters
		}
		rec.Degenerate = degenerate != 0
		if !rec.Degenerate {
			rec.Metrics = make(map[string]float64, 6)
			setMetric(rec.Metrics, metrics.MetricErrorRate, errRate)
			setMetric(rec.Metrics, metrics.MetricRecognitionRate, recRate)
			setMetric(rec.Metrics, metrics.MetricSentenceError, sentErr)
			setMetric(rec.Metrics, metrics.MetricNumberAccuracy, numAcc)
			setMetric(rec.Metrics, metrics.MetricSegmentationAccuracy, segAcc)
		}
		rec.GTNumbers = decodeList(gtNums)
		rec.HypNumbers = decodeList(hypNums)
		ids[id] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadVocabularies(ctx, runID, out, ids); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadVocabularies(ctx context.Context, runID string, records []metrics.Record, ids map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT v.record_id, v.vocabulary, v.in_reference, v.matched
        FROM record_vocabularies v JOIN records r ON r.id = v.record_id
        WHERE r.run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("query record vocabularies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			recordID       int64
			name           string
			inRef, matched sql.NullString
		)
		if err := rows.Scan(&recordID, &name, &inRef, &matched); err != nil {
			return fmt.Errorf("scan record vocabulary: %w", err)
		}
		idx, ok := ids[recordID]
		if !ok {
			continue
		}
		rec := &records[idx]
		result := metrics.VocabularyResult{InReference: decodeList(inRef), Matched: decodeList(matched)}
		if rec.Vocabulary == nil {
			rec.Vocabulary = make(map[string]metrics.VocabularyResult)
		}
		rec.Vocabulary[name] = result
		if acc, ok := result.Accuracy(); ok && rec.Metrics != nil {
			rec.Metrics[metrics.VocabularyMetric(name)] = acc
		}
	}
	return rows.Err()
}

// SaveLatencies inserts latency samples for a run.
func (s *Store) SaveLatencies(ctx context.Context, runID string, samples []LatencySample) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin latency tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, sample := range samples {
			var audioSeconds any
			if sample.Audio > 0 {
				audioSeconds = sample.Audio.Seconds()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO latencies (run_id, provider, stage, file, seconds, audio_seconds, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, sample.Provider, sample.Stage, sample.File, sample.Duration.Seconds(), audioSeconds, nullableString(sample.Err),
			); err != nil {
				return fmt.Errorf("insert latency: %w", err)
			}
		}
		return tx.Commit()
	})
}

// LatestLatencies returns, per provider, the successful batch-call latencies
// recorded by the most recent run that called that provider. Stress stages
// are left out.
func (s *Store) LatestLatencies(ctx context.Context) (map[string][]time.Duration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT l.provider, l.seconds
        FROM latencies l JOIN runs r ON r.id = l.run_id
        WHERE l.stage = 0 AND l.error IS NULL AND r.started_at = (
            SELECT MAX(r2.started_at) FROM runs r2 JOIN latencies l2 ON l2.run_id = r2.id
            WHERE l2.provider = l.provider AND l2.stage = 0
        )
        ORDER BY l.provider, l.id`)
	if err != nil {
		return nil, fmt.Errorf("query latencies: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]time.Duration)
	for rows.Next() {
		var (
			provider string
			seconds  float64
		)
		if err := rows.Scan(&provider, &seconds); err != nil {
			return nil, fmt.Errorf("scan latency: %w", err)
		}
		out[provider] = append(out[provider], fromSeconds(seconds))
	}
	return out, rows.Err()
}

// Calls returns every latency sample of a run, failed calls included,
// ordered by stage and then insertion.
func (s *Store) Calls(ctx context.Context, runID string) ([]LatencySample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT provider, stage, file, seconds, audio_seconds, error
        FROM latencies WHERE run_id = ? ORDER BY stage, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()
	var out []LatencySample
	for rows.Next() {
		var (
			sample  LatencySample
			seconds float64
			audio   sql.NullFloat64
			errText sql.NullString
		)
		if err := rows.Scan(&sample.Provider, &sample.Stage, &sample.File, &seconds, &audio, &errText); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		sample.Duration = fromSeconds(seconds)
		if audio.Valid {
			sample.Audio = fromSeconds(audio.Float64)
		}
		sample.Err = errText.String
		out = append(out, sample)
	}
	return out, rows.Err()
}
