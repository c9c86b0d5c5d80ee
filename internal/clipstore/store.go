// Package clipstore persists clip metadata and quiz timelines in SQLite,
// and provides the idempotent clip-creation flow on top of the tiered
// cache and the synthesis adapter.
package clipstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite-backed quiz and clip metadata tables. The
// audio_clips table enforces at most one logical clip row per
// fingerprint through a uniqueness constraint; duplicate-insert races
// resolve to the surviving row, never to an error.
type Store struct {
	db    *sql.DB
	log   *logger.Logger
	clock func() time.Time
}

// Open initializes the store at the given database path.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		err := os.MkdirAll(dir, 0o750)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db, log: log, clock: time.Now}

	err = store.initSchema(ctx)
	if err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS quizzes (
    quiz_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    provider TEXT NOT NULL,
    voice TEXT NOT NULL,
    speed REAL NOT NULL,
    model TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS story_segments (
    segment_id TEXT PRIMARY KEY,
    quiz_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    segment_text TEXT NOT NULL,
    pause_ms INTEGER NOT NULL,
    FOREIGN KEY(quiz_id) REFERENCES quizzes(quiz_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS quiz_questions (
    question_id TEXT PRIMARY KEY,
    quiz_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    stem TEXT NOT NULL,
    options TEXT NOT NULL,
    FOREIGN KEY(quiz_id) REFERENCES quizzes(quiz_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS timeline_items (
    quiz_id TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    item_type TEXT NOT NULL,
    item_ref_id TEXT NOT NULL,
    pause_ms INTEGER NOT NULL,
    PRIMARY KEY(quiz_id, order_index),
    FOREIGN KEY(quiz_id) REFERENCES quizzes(quiz_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS audio_clips (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL,
    duration_ms INTEGER,
    owner_type TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    voice TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_segments_quiz ON story_segments(quiz_id, position);
CREATE INDEX IF NOT EXISTS idx_questions_quiz ON quiz_questions(quiz_id, position);
`

	_, err := s.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveQuiz persists a quiz with its segments, questions, and timeline in
// one transaction. Timeline rows are written in orderIndex order and read
// back in the same order; no stage in between reorders them.
func (s *Store) SaveQuiz(
	ctx context.Context,
	quiz core.Quiz,
	segments []core.StorySegment,
	questions []core.QuizQuestion,
	items []core.TimelineItem,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save quiz: %w", err)
	}
	defer tx.Rollback()

	now := s.clock().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quizzes(quiz_id, title, provider, voice, speed, model, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		quiz.ID, quiz.Title, quiz.Provider, quiz.Voice, quiz.Speed, quiz.Model, now)
	if err != nil {
		return fmt.Errorf("insert quiz '%s': %w", quiz.ID, err)
	}

	for position, segment := range segments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO story_segments(segment_id, quiz_id, position, segment_text, pause_ms)
			 VALUES(?, ?, ?, ?, ?)`,
			segment.ID, quiz.ID, position, segment.Text, segment.PauseMS)
		if err != nil {
			return fmt.Errorf("insert segment '%s': %w", segment.ID, err)
		}
	}

	for position, question := range questions {
		optionsJSON, marshalErr := json.Marshal(question.Options)
		if marshalErr != nil {
			return fmt.Errorf("marshal options of question '%s': %w", question.ID, marshalErr)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO quiz_questions(question_id, quiz_id, position, stem, options)
			 VALUES(?, ?, ?, ?, ?)`,
			question.ID, quiz.ID, position, question.Stem, string(optionsJSON))
		if err != nil {
			return fmt.Errorf("insert question '%s': %w", question.ID, err)
		}
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO timeline_items(quiz_id, order_index, item_type, item_ref_id, pause_ms)
			 VALUES(?, ?, ?, ?, ?)`,
			quiz.ID, item.OrderIndex, item.ItemType, item.ItemRefID, item.PauseMS)
		if err != nil {
			return fmt.Errorf("insert timeline item %d: %w", item.OrderIndex, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit save quiz: %w", err)
	}

	return nil
}

// Quiz loads one quiz header row.
func (s *Store) Quiz(ctx context.Context, quizID string) (*core.Quiz, error) {
	var quiz core.Quiz

	row := s.db.QueryRowContext(ctx,
		`SELECT quiz_id, title, provider, voice, speed, model FROM quizzes WHERE quiz_id = ?`,
		quizID)

	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Provider, &quiz.Voice, &quiz.Speed, &quiz.Model)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: '%s'", core.ErrQuizNotFound, quizID)
		}

		return nil, fmt.Errorf("load quiz '%s': %w", quizID, err)
	}

	return &quiz, nil
}

// TimelineItems returns a quiz's timeline in orderIndex order.
func (s *Store) TimelineItems(ctx context.Context, quizID string) ([]core.TimelineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type, item_ref_id, order_index, pause_ms
		 FROM timeline_items WHERE quiz_id = ? ORDER BY order_index ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load timeline of quiz '%s': %w", quizID, err)
	}
	defer rows.Close()

	var items []core.TimelineItem

	for rows.Next() {
		var item core.TimelineItem

		err = rows.Scan(&item.ItemType, &item.ItemRefID, &item.OrderIndex, &item.PauseMS)
		if err != nil {
			return nil, fmt.Errorf("scan timeline item: %w", err)
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate timeline of quiz '%s': %w", quizID, err)
	}

	return items, nil
}

// StorySegments returns a quiz's segments keyed by segment id.
func (s *Store) StorySegments(ctx context.Context, quizID string) (map[string]core.StorySegment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_id, segment_text, pause_ms
		 FROM story_segments WHERE quiz_id = ? ORDER BY position ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load segments of quiz '%s': %w", quizID, err)
	}
	defer rows.Close()

	segments := make(map[string]core.StorySegment)

	for rows.Next() {
		var segment core.StorySegment

		err = rows.Scan(&segment.ID, &segment.Text, &segment.PauseMS)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}

		segments[segment.ID] = segment
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate segments of quiz '%s': %w", quizID, err)
	}

	return segments, nil
}

// QuizQuestions returns a quiz's questions keyed by question id.
func (s *Store) QuizQuestions(ctx context.Context, quizID string) (map[string]core.QuizQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, stem, options
		 FROM quiz_questions WHERE quiz_id = ? ORDER BY position ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions of quiz '%s': %w", quizID, err)
	}
	defer rows.Close()

	questions := make(map[string]core.QuizQuestion)

	for rows.Next() {
		var (
			question    core.QuizQuestion
			optionsJSON string
		)

		err = rows.Scan(&question.ID, &question.Stem, &optionsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		err = json.Unmarshal([]byte(optionsJSON), &question.Options)
		if err != nil {
			return nil, fmt.Errorf("decode options of question '%s': %w", question.ID, err)
		}

		questions[question.ID] = question
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate questions of quiz '%s': %w", quizID, err)
	}

	return questions, nil
}

// ClipByFingerprint loads one clip metadata row.
func (s *Store) ClipByFingerprint(ctx context.Context, fp string) (*core.AudioClip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, url, duration_ms, owner_type, owner_id, provider, voice
		 FROM audio_clips WHERE fingerprint = ?`, fp)

	clip, err := scanClip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: '%s'", core.ErrClipNotFound, fp)
		}

		return nil, fmt.Errorf("load clip '%s': %w", fp, err)
	}

	return clip, nil
}

// ClipsByFingerprint batch-loads clip rows for a set of fingerprints.
// Unknown fingerprints are simply absent from the result.
func (s *Store) ClipsByFingerprint(ctx context.Context, fps []string) (map[string]core.AudioClip, error) {
	clips := make(map[string]core.AudioClip, len(fps))

	if len(fps) == 0 {
		return clips, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(fps)), ",")
	args := make([]any, 0, len(fps))

	for _, fp := range fps {
		args = append(args, fp)
	}

	query := fmt.Sprintf(
		`SELECT fingerprint, url, duration_ms, owner_type, owner_id, provider, voice
		 FROM audio_clips WHERE fingerprint IN (%s)`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("batch load %d clips: %w", len(fps), err)
	}
	defer rows.Close()

	for rows.Next() {
		clip, scanErr := scanClip(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan clip: %w", scanErr)
		}

		clips[clip.Fingerprint] = *clip
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}

	return clips, nil
}

// UpsertClip inserts a clip row, treating a fingerprint conflict as an
// idempotent no-op, and returns the surviving row.
func (s *Store) UpsertClip(ctx context.Context, clip core.AudioClip) (*core.AudioClip, error) {
	var durationMS any
	if clip.DurationMS > 0 {
		durationMS = clip.DurationMS
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_clips(fingerprint, url, duration_ms, owner_type, owner_id, provider, voice, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO NOTHING`,
		clip.Fingerprint, clip.URL, durationMS, clip.OwnerType, clip.OwnerID,
		clip.Provider, clip.Voice, s.clock().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert clip '%s': %w", clip.Fingerprint, err)
	}

	return s.ClipByFingerprint(ctx, clip.Fingerprint)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (*core.AudioClip, error) {
	var (
		clip       core.AudioClip
		durationMS sql.NullInt64
	)

	err := row.Scan(&clip.Fingerprint, &clip.URL, &durationMS,
		&clip.OwnerType, &clip.OwnerID, &clip.Provider, &clip.Voice)
	if err != nil {
		return nil, err
	}

	if durationMS.Valid {
		clip.DurationMS = durationMS.Int64
	}

	return &clip, nil
}
