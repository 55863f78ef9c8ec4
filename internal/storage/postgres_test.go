package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDB_Ping(t *testing.T) {
	db := testPostgres(t)
	assert.NotNil(t, db.Pool())
	assert.NoError(t, db.Ping(testContext(t)))
}

func TestMigrationVersion(t *testing.T) {
	testPostgres(t)

	version, dirty, err := MigrationVersion(os.Getenv("TEST_POSTGRES_URL"), "../../migrations/postgres")
	assert.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)
}
