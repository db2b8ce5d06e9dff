package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"neuroquest/pkg/models"
)

// SQLiteStore persists learners and progress state in a local SQLite file.
// Learner summary columns are maintained on every save so the leaderboard is
// a single query.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS learners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		total_points INTEGER DEFAULT 0,
		level INTEGER DEFAULT 1,
		current_streak INTEGER DEFAULT 0,
		evolution_stage INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS progress_state (
		learner_id INTEGER NOT NULL,
		namespace TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (learner_id, namespace),
		FOREIGN KEY (learner_id) REFERENCES learners(id)
	);

	CREATE INDEX IF NOT EXISTS idx_learners_points ON learners(total_points);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// CreateLearner inserts a new account row.
func (s *SQLiteStore) CreateLearner(email, displayName, passwordHash string) (*models.Learner, error) {
	res, err := s.db.Exec(
		"INSERT INTO learners (email, display_name, password_hash) VALUES (?, ?, ?)",
		email, displayName, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create learner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.LearnerByID(id)
}

// LearnerByEmail looks up an account by email.
func (s *SQLiteStore) LearnerByEmail(email string) (*models.Learner, error) {
	var l models.Learner
	err := s.db.Get(&l,
		"SELECT id, email, display_name, password_hash, created_at FROM learners WHERE email = ?", email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LearnerByID looks up an account by ID.
func (s *SQLiteStore) LearnerByID(id int64) (*models.Learner, error) {
	var l models.Learner
	err := s.db.Get(&l,
		"SELECT id, email, display_name, password_hash, created_at FROM learners WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LearnerIDs returns every account ID, for the midnight quest sweep.
func (s *SQLiteStore) LearnerIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, "SELECT id FROM learners ORDER BY id"); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadState rehydrates both namespaces. A learner with no saved rows gets
// (nil, nil) so the caller can start from defaults.
func (s *SQLiteStore) LoadState(learnerID int64) (*models.PersistedState, error) {
	rows, err := s.db.Query(
		"SELECT namespace, payload FROM progress_state WHERE learner_id = ?", learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var state models.PersistedState
	found := false
	for rows.Next() {
		var namespace, payload string
		if err := rows.Scan(&namespace, &payload); err != nil {
			return nil, err
		}
		switch namespace {
		case NamespaceCore:
			if err := json.Unmarshal([]byte(payload), &state.Core); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", namespace, err)
			}
			found = true
		case NamespaceEngagement:
			if err := json.Unmarshal([]byte(payload), &state.Engagement); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", namespace, err)
			}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// SaveState upserts both namespaces and refreshes the learner summary
// columns used by the leaderboard.
func (s *SQLiteStore) SaveState(learnerID int64, state *models.PersistedState) error {
	core, err := json.Marshal(state.Core)
	if err != nil {
		return fmt.Errorf("failed to encode core state: %w", err)
	}
	engagement, err := json.Marshal(state.Engagement)
	if err != nil {
		return fmt.Errorf("failed to encode engagement state: %w", err)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO progress_state (learner_id, namespace, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (learner_id, namespace) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.Exec(upsert, learnerID, NamespaceCore, string(core)); err != nil {
		return err
	}
	if _, err := tx.Exec(upsert, learnerID, NamespaceEngagement, string(engagement)); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE learners
		SET total_points = ?, level = ?, current_streak = ?, evolution_stage = ?
		WHERE id = ?`,
		state.Core.TotalPoints, state.Core.Level,
		state.Engagement.CurrentStreak, state.Engagement.CurrentEvolutionStage,
		learnerID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Leaderboard returns learners ranked by total points.
func (s *SQLiteStore) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := s.db.Select(&entries, `
		SELECT id, display_name, total_points, level, current_streak, evolution_stage
		FROM learners
		ORDER BY total_points DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
