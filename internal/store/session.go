package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents a wave tracking session stored in the database.
type Session struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Side            string     `json:"side"`
	WaveAngleThresh float64    `json:"wave_angle_thresh"`
	MinAngle        float64    `json:"min_angle"`
	MaxAngle        float64    `json:"max_angle"`
	Smoothing       bool       `json:"smoothing"`
	WaveCount       int        `json:"wave_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, name, side, wave_angle_thresh, min_angle, max_angle,
	smoothing, wave_count, created_at, updated_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.Side, &s.WaveAngleThresh, &s.MinAngle, &s.MaxAngle,
		&s.Smoothing, &s.WaveCount, &s.CreatedAt, &s.UpdatedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(s *Session) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, name, side, wave_angle_thresh, min_angle, max_angle,
			smoothing, wave_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Side, s.WaveAngleThresh, s.MinAngle, s.MaxAngle,
		s.Smoothing, s.WaveCount, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateCount stores the current wave count of a session.
func (r *SessionRepository) UpdateCount(id string, count int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET wave_count = ?, updated_at = ? WHERE id = ?`,
		count, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// End marks a session as finished. Ending an ended session keeps the
// first end time.
func (r *SessionRepository) End(id string, at time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = COALESCE(ended_at, ?), updated_at = ? WHERE id = ?`,
		at, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a session and its repetitions.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
