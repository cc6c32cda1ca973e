// Package postgres provides a PostgreSQL implementation of storage.Storage
// on top of database/sql, using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const returningColumns = "RETURNING id, first_name, last_name, email, age"

// Postgres is the PostgreSQL implementation of storage.Storage.
type Postgres struct {
	Db *sql.DB
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to the database at dsn (a postgres:// URL or key=value
// string) and creates the students table if needed.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			id         BIGSERIAL PRIMARY KEY,
			first_name TEXT    NOT NULL,
			last_name  TEXT    NOT NULL,
			email      TEXT    NOT NULL UNIQUE,
			age        INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return &Postgres{Db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.Db.Close()
}

// CreateStudent inserts a row and returns it in the same statement via
// RETURNING, so no separate read-back is needed.
func (p *Postgres) CreateStudent(ctx context.Context, student types.NewStudent) (types.Student, error) {
	f := student.Fields()
	created, err := scanStudent(p.Db.QueryRowContext(ctx,
		"INSERT INTO students (first_name, last_name, email, age) VALUES ($1, $2, $3, $4) "+returningColumns,
		f.FirstName, f.LastName, f.Email, f.Age,
	))
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", translate(err))
	}
	return created, nil
}

// GetStudentByID fetches one student by primary key. sql.ErrNoRows is
// reported as storage.ErrNotFound.
func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	student, err := scanStudent(p.Db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, age FROM students WHERE id = $1", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("GetStudentByID: id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}
	return student, nil
}

// GetStudents returns every row ordered by id, or an empty (non-nil)
// slice when the table is empty.
func (p *Postgres) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := p.Db.QueryContext(ctx,
		"SELECT id, first_name, last_name, email, age FROM students ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}
	return students, nil
}

// UpdateStudentByID locks the row with SELECT ... FOR UPDATE before
// applying the supplied columns.
func (p *Postgres) UpdateStudentByID(ctx context.Context, id int64, update types.StudentUpdate) (types.Student, error) {
	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanStudent(tx.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, age FROM students WHERE id = $1 FOR UPDATE", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	if update.IsEmpty() {
		return existing, nil
	}

	set, args := setClause(update)
	args = append(args, id)
	updated, err := scanStudent(tx.QueryRowContext(ctx,
		"UPDATE students SET "+set+" WHERE id = $"+strconv.Itoa(len(args))+" "+returningColumns,
		args...,
	))
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: commit: %w", translate(err))
	}
	return updated, nil
}

// DeleteStudentByID removes a row and reports whether one existed. A
// single DELETE is atomic, so no explicit transaction is opened; the
// affected-row count doubles as the existence check.
func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) (bool, error) {
	result, err := p.Db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	return affected > 0, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var student types.Student
	err := row.Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&student.Age,
	)
	return student, err
}

// setClause builds the SET list for the supplied fields only, numbering
// placeholders from $1. The caller appends the id as the last argument.
func setClause(update types.StudentUpdate) (string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, col+" = $"+strconv.Itoa(len(args)))
	}
	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.Age != nil {
		add("age", *update.Age)
	}
	return strings.Join(cols, ", "), args
}

// translate maps a unique_violation to storage.ErrDuplicateKey. pgx
// surfaces server errors as *pgconn.PgError through database/sql.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}
