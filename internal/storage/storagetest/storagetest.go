// Package storagetest is a conformance suite that every storage.Storage
// backend runs from its own tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// Factory returns an empty store. The suite calls it once per subtest and
// closes the store when the subtest ends.
type Factory func(t *testing.T) storage.Storage

// Ptr returns a pointer to v, for filling optional fields inline.
func Ptr[T any](v T) *T { return &v }

// NewStudent builds a create payload with every field supplied.
func NewStudent(first, last, email string, age int) types.NewStudent {
	return types.NewStudent{FirstName: Ptr(first), LastName: Ptr(last), Email: Ptr(email), Age: Ptr(age)}
}

// Run executes every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"CreateReturnsInput", testCreateReturnsInput},
		{"CreateDuplicateEmail", testCreateDuplicateEmail},
		{"ListEmpty", testListEmpty},
		{"ListAfterCreates", testListAfterCreates},
		{"GetMissing", testGetMissing},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateAgeOnly", testUpdateAgeOnly},
		{"UpdateNoFields", testUpdateNoFields},
		{"UpdateDuplicateEmail", testUpdateDuplicateEmail},
		{"UpdateOwnEmail", testUpdateOwnEmail},
		{"DeleteTwice", testDeleteTwice},
		{"Scenario", testScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func testCreateReturnsInput(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	got, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	assert.NotZero(t, got.ID)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "Gomez", got.LastName)
	assert.Equal(t, "ana@x.com", got.Email)
	assert.Equal(t, 20, got.Age)

	stored, err := s.GetStudentByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func testCreateDuplicateEmail(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	_, err = s.CreateStudent(ctx, NewStudent("Other", "Person", "ana@x.com", 30))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := s.GetStudents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ana", all[0].FirstName)
}

func testListEmpty(t *testing.T, s storage.Storage) {
	all, err := s.GetStudents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func testListAfterCreates(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	want := make(map[int64]types.Student)
	for i := 0; i < 5; i++ {
		created, err := s.CreateStudent(ctx,
			NewStudent(fmt.Sprintf("First%d", i), fmt.Sprintf("Last%d", i), fmt.Sprintf("s%d@x.com", i), 18+i))
		require.NoError(t, err)
		want[created.ID] = created
	}

	all, err := s.GetStudents(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(want))
	for _, got := range all {
		assert.Equal(t, want[got.ID], got)
	}
}

func testGetMissing(t *testing.T, s storage.Storage) {
	_, err := s.GetStudentByID(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateMissing(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	updates := []types.StudentUpdate{
		{},
		{Age: Ptr(30)},
		{Email: Ptr("nobody@x.com")},
		{FirstName: Ptr("A"), LastName: Ptr("B"), Email: Ptr("c@x.com"), Age: Ptr(1)},
	}
	for _, u := range updates {
		_, err := s.UpdateStudentByID(ctx, 42, u)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func testUpdateAgeOnly(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	updated, err := s.UpdateStudentByID(ctx, created.ID, types.StudentUpdate{Age: Ptr(21)})
	require.NoError(t, err)

	want := created
	want.Age = 21
	assert.Equal(t, want, updated)

	stored, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored)
}

func testUpdateNoFields(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := s.UpdateStudentByID(ctx, created.ID, types.StudentUpdate{})
		require.NoError(t, err)
		assert.Equal(t, created, got)
	}
}

func testUpdateDuplicateEmail(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	ana, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)
	_, err = s.CreateStudent(ctx, NewStudent("Luis", "Perez", "luis@x.com", 22))
	require.NoError(t, err)

	_, err = s.UpdateStudentByID(ctx, ana.ID, types.StudentUpdate{
		FirstName: Ptr("Changed"),
		Email:     Ptr("luis@x.com"),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	stored, err := s.GetStudentByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, ana, stored, "failed update must not change the row")
}

func testUpdateOwnEmail(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	ana, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	got, err := s.UpdateStudentByID(ctx, ana.ID, types.StudentUpdate{Email: Ptr("ana@x.com")})
	require.NoError(t, err)
	assert.Equal(t, ana, got)
}

func testDeleteTwice(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)

	deleted, err := s.DeleteStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.GetStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testScenario(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	ana, err := s.CreateStudent(ctx, NewStudent("Ana", "Gomez", "ana@x.com", 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), ana.ID)

	updated, err := s.UpdateStudentByID(ctx, ana.ID, types.StudentUpdate{Age: Ptr(21)})
	require.NoError(t, err)
	assert.Equal(t, types.Student{ID: 1, FirstName: "Ana", LastName: "Gomez", Email: "ana@x.com", Age: 21}, updated)

	deleted, err := s.DeleteStudentByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteStudentByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	all, err := s.GetStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
