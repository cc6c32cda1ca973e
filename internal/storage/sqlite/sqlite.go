// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using database/sql.
//
// Importing go-sqlite3 registers the "sqlite3" driver; its error type is
// also used to detect unique-constraint violations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

const selectColumns = "SELECT id, first_name, last_name, email, age FROM students"

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path, creates the students table if it
// does not already exist, and returns a ready-to-use *SQLite.
// Use ":memory:" for a throwaway database.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows one writer at a time; a single connection keeps
	// concurrent requests from failing with SQLITE_BUSY and keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT    NOT NULL,
			last_name  TEXT    NOT NULL,
			email      TEXT    NOT NULL UNIQUE,
			age        INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateStudent inserts a new row and reads it back inside one transaction.
func (s *SQLite) CreateStudent(ctx context.Context, student types.NewStudent) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: begin: %w", err)
	}
	defer tx.Rollback()

	f := student.Fields()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO students (first_name, last_name, email, age) VALUES (?, ?, ?, ?)",
		f.FirstName, f.LastName, f.Email, f.Age,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", translate(err))
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	created, err := getByID(ctx, tx, lastID)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: commit: %w", translate(err))
	}
	return created, nil
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	student, err := getByID(ctx, s.Db, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}
	return student, nil
}

// GetStudents returns all student rows ordered by id.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx, selectColumns+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(
			&student.ID,
			&student.FirstName,
			&student.LastName,
			&student.Email,
			&student.Age,
		); err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}
	return students, nil
}

// UpdateStudentByID checks the row exists, applies the supplied columns
// and re-reads the record, all in one transaction.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id int64, update types.StudentUpdate) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := getByID(ctx, tx, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	if update.IsEmpty() {
		return existing, nil
	}

	set, args := setClause(update)
	args = append(args, id)
	if _, err := tx.ExecContext(ctx,
		"UPDATE students SET "+set+" WHERE id = ?", args...,
	); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", translate(err))
	}

	updated, err := getByID(ctx, tx, id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: commit: %w", translate(err))
	}
	return updated, nil
}

// DeleteStudentByID removes a student row by primary key and reports
// whether it existed.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) (bool, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("DeleteStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("DeleteStudentByID: commit: %w", err)
	}
	return affected > 0, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getByID(ctx context.Context, q queryer, id int64) (types.Student, error) {
	var student types.Student
	err := q.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&student.Age,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("scan: %w", err)
	}
	return student, nil
}

// setClause builds the SET list for the supplied fields only. Column names
// are fixed here, never taken from input.
func setClause(update types.StudentUpdate) (string, []any) {
	var (
		cols []string
		args []any
	)
	if update.FirstName != nil {
		cols = append(cols, "first_name = ?")
		args = append(args, *update.FirstName)
	}
	if update.LastName != nil {
		cols = append(cols, "last_name = ?")
		args = append(args, *update.LastName)
	}
	if update.Email != nil {
		cols = append(cols, "email = ?")
		args = append(args, *update.Email)
	}
	if update.Age != nil {
		cols = append(cols, "age = ?")
		args = append(args, *update.Age)
	}
	return strings.Join(cols, ", "), args
}

// translate maps a unique-constraint violation to storage.ErrDuplicateKey.
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, sqliteErr.Error())
	}
	return err
}
