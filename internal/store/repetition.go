package store

import (
	"database/sql"
	"time"
)

// Repetition is one completed wave of a session.
type Repetition struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Index           int       `json:"index"`
	PeakPerformance float64   `json:"peak_performance"`
	Frames          int       `json:"frames"`
	CompletedAt     time.Time `json:"completed_at"`
}

// RepetitionRepository stores completed repetitions.
type RepetitionRepository struct {
	db *sql.DB
}

// Repetitions returns the repetition repository for this store.
func (s *Store) Repetitions() *RepetitionRepository {
	return &RepetitionRepository{db: s.db}
}

// Create inserts a repetition and sets its ID.
// A zero CompletedAt is replaced with the current time.
func (r *RepetitionRepository) Create(rep *Repetition) error {
	if rep.CompletedAt.IsZero() {
		rep.CompletedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO repetitions (session_id, rep_index, peak_performance, frames, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rep.SessionID, rep.Index, rep.PeakPerformance, rep.Frames, rep.CompletedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = id
	return nil
}

// ListBySession retrieves the repetitions of a session in completion order.
func (r *RepetitionRepository) ListBySession(sessionID string) ([]Repetition, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, rep_index, peak_performance, frames, completed_at
		 FROM repetitions
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []Repetition
	for rows.Next() {
		var rep Repetition
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Index, &rep.PeakPerformance,
			&rep.Frames, &rep.CompletedAt); err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reps, nil
}

// DeleteBySession removes all repetitions of a session.
func (r *RepetitionRepository) DeleteBySession(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM repetitions WHERE session_id = ?`, sessionID)
	return err
}
