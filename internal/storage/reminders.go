package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/freq"
	"remindbot/internal/reminder"
	"remindbot/internal/trigger"
)

//go:embed migrations.sql
var migrationsFS embed.FS

func (s *DB) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// UpsertUser creates or refreshes the user row for a telegram id and
// returns the durable db id.
func (s *DB) UpsertUser(ctx context.Context, tgUserID int64, username string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(tg_user_id, username, created_at) VALUES(?,?,?)
		 ON CONFLICT(tg_user_id) DO UPDATE SET username=excluded.username`,
		tgUserID, nullStr(username), time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE tg_user_id = ?`, tgUserID).Scan(&id)
	return id, err
}

const reminderCols = `id, user_id, chat_id, text, is_active,
	frequency_type, custom_frequency, start_datetime, job_id, next_run_time`

func (s *DB) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	custom, err := encodeCustom(r.Custom)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(user_id, chat_id, text, is_active, frequency_type, custom_frequency,
		                       start_datetime, job_id, next_run_time, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.UserID, r.ChatID, r.Text, r.IsActive, string(r.Frequency), custom,
		r.StartAt.Format(time.RFC3339Nano), nullStr(r.JobID), encodeTime(r.NextRunAt),
		time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *DB) GetReminder(ctx context.Context, id int64) (*reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminder.ErrNotFound
	}
	return r, err
}

func (s *DB) UpdateReminder(ctx context.Context, id int64, p reminder.Patch) error {
	var set []string
	var args []any
	if p.IsActive != nil {
		set = append(set, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	if p.JobID != nil {
		set = append(set, "job_id = ?")
		args = append(args, nullStr(*p.JobID))
	}
	if p.StartAt != nil {
		set = append(set, "start_datetime = ?")
		args = append(args, p.StartAt.Format(time.RFC3339Nano))
	}
	switch {
	case p.NextRunAt != nil:
		set = append(set, "next_run_time = ?")
		args = append(args, p.NextRunAt.Format(time.RFC3339Nano))
	case p.ClearNextRun:
		set = append(set, "next_run_time = NULL")
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (s *DB) DeleteReminder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (s *DB) ListByOwner(ctx context.Context, userID int64, active *bool) ([]*reminder.Reminder, error) {
	q := `SELECT ` + reminderCols + ` FROM reminders WHERE user_id = ?`
	args := []any{userID}
	if active != nil {
		q += ` AND is_active = ?`
		args = append(args, *active)
	}
	q += ` ORDER BY id`
	return s.queryReminders(ctx, q, args...)
}

func (s *DB) ListAll(ctx context.Context) ([]*reminder.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderCols+` FROM reminders ORDER BY id`)
}

func (s *DB) queryReminders(ctx context.Context, q string, args ...any) ([]*reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*reminder.Reminder, error) {
	var (
		r       reminder.Reminder
		ftRaw   string
		custom  sql.NullString
		startAt string
		jobID   sql.NullString
		nextRun sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ChatID, &r.Text, &r.IsActive,
		&ftRaw, &custom, &startAt, &jobID, &nextRun); err != nil {
		return nil, err
	}

	ft, err := trigger.ParseFrequency(ftRaw)
	if err != nil {
		return nil, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	r.Frequency = ft

	if custom.Valid {
		var d freq.Duration
		if err := json.Unmarshal([]byte(custom.String), &d); err != nil {
			return nil, fmt.Errorf("reminder %d: decode custom frequency: %w", r.ID, err)
		}
		r.Custom = &d
	}
	if r.StartAt, err = time.Parse(time.RFC3339Nano, startAt); err != nil {
		return nil, fmt.Errorf("reminder %d: decode start: %w", r.ID, err)
	}
	if jobID.Valid {
		r.JobID = jobID.String
	}
	if nextRun.Valid {
		t, err := time.Parse(time.RFC3339Nano, nextRun.String)
		if err != nil {
			return nil, fmt.Errorf("reminder %d: decode next run: %w", r.ID, err)
		}
		r.NextRunAt = &t
	}
	return &r, nil
}

func encodeCustom(d *freq.Duration) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
