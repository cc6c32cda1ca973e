package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/storage/storagetest"
	"github.com/aanand-mishra/student-records/internal/types"
)

// dsnEnv names the variable holding a disposable database for integration
// tests. The table is truncated before every subtest.
const dsnEnv = "STUDENTS_TEST_POSTGRES_DSN"

func TestConformance(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		t.Helper()
		p, err := New(context.Background(), dsn)
		require.NoError(t, err)
		_, err = p.Db.Exec("TRUNCATE students RESTART IDENTITY")
		require.NoError(t, err)
		return p
	})
}

func TestSetClause(t *testing.T) {
	set, args := setClause(types.StudentUpdate{
		FirstName: storagetest.Ptr("Ana"),
		Email:     storagetest.Ptr("ana@x.com"),
		Age:       storagetest.Ptr(21),
	})
	assert.Equal(t, "first_name = $1, email = $2, age = $3", set)
	assert.Equal(t, []any{"Ana", "ana@x.com", 21}, args)
}
