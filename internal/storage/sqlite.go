// Package storage is the SQLite binding of the store's Storage
// collaborator. Collections are saved whole (the store owns ordering and
// identity) and loads are lenient: any failure yields an empty collection
// and a log line, never an error, so a damaged database degrades to a
// fresh start instead of a crash.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/room8/internal/model"
)

type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *SQLite {
	return &SQLite{db: db, logger: logger}
}

const choreCols = `id, name, description, frequency, estimated_minutes, priority, assigned_to, created_at, last_completed_at, scheduled_at, is_completed, calendar_event_id`

func (s *SQLite) SaveChores(chores []model.Chore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chores`); err != nil {
		return fmt.Errorf("clear chores: %w", err)
	}
	for _, c := range chores {
		var assignedTo sql.NullString
		if c.AssignedTo != nil {
			assignedTo = sql.NullString{String: *c.AssignedTo, Valid: true}
		}
		var lastCompleted sql.NullTime
		if c.LastCompletedAt != nil {
			lastCompleted = sql.NullTime{Time: c.LastCompletedAt.UTC(), Valid: true}
		}
		_, err := tx.Exec(
			`INSERT INTO chores (`+choreCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, string(c.Frequency), c.EstimatedMinutes, string(c.Priority),
			assignedTo, c.CreatedAt.UTC(), lastCompleted, c.ScheduledAt.UTC(), c.IsCompleted, c.CalendarEventID,
		)
		if err != nil {
			return fmt.Errorf("insert chore %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) LoadChores() []model.Chore {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores ORDER BY created_at ASC`)
	if err != nil {
		s.logger.Warn("load chores failed, starting empty", "error", err)
		return nil
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		var c model.Chore
		var assignedTo sql.NullString
		var lastCompleted sql.NullTime
		err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Frequency, &c.EstimatedMinutes, &c.Priority,
			&assignedTo, &c.CreatedAt, &lastCompleted, &c.ScheduledAt, &c.IsCompleted, &c.CalendarEventID,
		)
		if err != nil {
			s.logger.Warn("scan chore failed, starting empty", "error", err)
			return nil
		}
		if assignedTo.Valid {
			c.AssignedTo = &assignedTo.String
		}
		if lastCompleted.Valid {
			t := lastCompleted.Time
			c.LastCompletedAt = &t
		}
		chores = append(chores, c)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("load chores failed, starting empty", "error", err)
		return nil
	}
	return chores
}

func (s *SQLite) SaveRoommates(roommates []model.Roommate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM roommates`); err != nil {
		return fmt.Errorf("clear roommates: %w", err)
	}
	for _, r := range roommates {
		_, err := tx.Exec(
			`INSERT INTO roommates (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Email, r.Phone, r.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert roommate %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) LoadRoommates() []model.Roommate {
	rows, err := s.db.Query(`SELECT id, name, email, phone, created_at FROM roommates ORDER BY created_at ASC`)
	if err != nil {
		s.logger.Warn("load roommates failed, starting empty", "error", err)
		return nil
	}
	defer rows.Close()

	var roommates []model.Roommate
	for rows.Next() {
		var r model.Roommate
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.CreatedAt); err != nil {
			s.logger.Warn("scan roommate failed, starting empty", "error", err)
			return nil
		}
		roommates = append(roommates, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("load roommates failed, starting empty", "error", err)
		return nil
	}
	return roommates
}

func (s *SQLite) SaveCompletions(completions []model.ChoreCompletion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chore_completions`); err != nil {
		return fmt.Errorf("clear completions: %w", err)
	}
	for _, c := range completions {
		_, err := tx.Exec(
			`INSERT INTO chore_completions (id, chore_id, completed_by, completed_at, notes) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.ChoreID, c.CompletedBy, c.CompletedAt.UTC(), c.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert completion %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) LoadCompletions() []model.ChoreCompletion {
	rows, err := s.db.Query(`SELECT id, chore_id, completed_by, completed_at, notes FROM chore_completions ORDER BY completed_at ASC`)
	if err != nil {
		s.logger.Warn("load completions failed, starting empty", "error", err)
		return nil
	}
	defer rows.Close()

	var completions []model.ChoreCompletion
	for rows.Next() {
		var c model.ChoreCompletion
		if err := rows.Scan(&c.ID, &c.ChoreID, &c.CompletedBy, &c.CompletedAt, &c.Notes); err != nil {
			s.logger.Warn("scan completion failed, starting empty", "error", err)
			return nil
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("load completions failed, starting empty", "error", err)
		return nil
	}
	return completions
}
