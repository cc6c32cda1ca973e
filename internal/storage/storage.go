// Package storage defines the Storage interface that every database
// backend must satisfy, and the sentinel errors backends report.
//
// Handlers depend only on this interface. Switching databases means
// implementing it for the new backend and selecting it in config.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-records/internal/types"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	// It is an expected per-request outcome, not an internal failure.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateKey is returned when a write would give two students the
	// same email.
	ErrDuplicateKey = errors.New("email already registered")
)

// Storage is the database contract. Every method runs as a single
// transaction against the backing datastore.
type Storage interface {
	// CreateStudent inserts a new student and returns the persisted record
	// including its assigned id. Returns ErrDuplicateKey if the email exists.
	CreateStudent(ctx context.Context, student types.NewStudent) (types.Student, error)

	// GetStudentByID fetches a single student. Returns ErrNotFound if absent.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudents returns every student in the database.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// UpdateStudentByID applies the supplied fields of update and returns the
	// stored record. An empty update returns the record unchanged.
	// Returns ErrNotFound or ErrDuplicateKey.
	UpdateStudentByID(ctx context.Context, id int64, update types.StudentUpdate) (types.Student, error)

	// DeleteStudentByID removes a student and reports whether one existed.
	DeleteStudentByID(ctx context.Context, id int64) (bool, error)

	Close() error
}
