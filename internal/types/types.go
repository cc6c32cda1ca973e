// Package types holds the shared data structures used across the
// application. Handlers, storage backends and tests all import types
// without depending on each other.
package types

// Student is a persisted student record.
type Student struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
}

// NewStudent is the payload for creating a student.
//
// Every field must be present, but only presence is checked: the fields
// are pointers so that "required" rejects a missing key while still
// accepting "" or 0. Uniqueness of email is left to the store.
type NewStudent struct {
	FirstName *string `json:"first_name" validate:"required"`
	LastName  *string `json:"last_name"  validate:"required"`
	Email     *string `json:"email"      validate:"required"`
	Age       *int    `json:"age"        validate:"required"`
}

// Fields returns the values to insert, with nil fields as zero values.
// ID is left zero; the store assigns it.
func (n NewStudent) Fields() Student {
	var s Student
	if n.FirstName != nil {
		s.FirstName = *n.FirstName
	}
	if n.LastName != nil {
		s.LastName = *n.LastName
	}
	if n.Email != nil {
		s.Email = *n.Email
	}
	if n.Age != nil {
		s.Age = *n.Age
	}
	return s
}

// StudentUpdate is a partial update. A nil field was not supplied and
// leaves the stored column untouched; an explicit JSON null decodes to nil
// and is treated the same way.
type StudentUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Age       *int    `json:"age"`
}

// IsEmpty reports whether no field was supplied.
func (u StudentUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Age == nil
}
