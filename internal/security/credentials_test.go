package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

func newFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	t.Setenv(KeyringEnv, "false")
	dir := filepath.Join(t.TempDir(), "credentials")
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.False(t, s.UsesKeyring())
	return s, dir
}

func TestFileStore(t *testing.T) {
	s, dir := newFileStore(t)

	require.NoError(t, s.Set("postgres:etl@db", "s3cret"))
	got, err := s.Get("postgres:etl@db")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	data, err := os.ReadFile(filepath.Join(dir, "postgres_etl_db.cred"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")

	info, err := os.Stat(filepath.Join(dir, ".master"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, s.Delete("postgres:etl@db"))
	require.NoError(t, s.Delete("postgres:etl@db"))
	_, err = s.Get("postgres:etl@db")
	assert.Equal(t, errors.ErrCodeCredentials, errors.GetErrorCode(err))
}

func TestFileStoreReusesMasterKey(t *testing.T) {
	s, dir := newFileStore(t)
	require.NoError(t, s.Set("a", "one"))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "one", got)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	s := &Store{useKeyring: true}

	require.NoError(t, s.Set("snowflake:etl@xy12345", "pw"))
	got, err := s.Get("snowflake:etl@xy12345")
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	require.NoError(t, s.Delete("snowflake:etl@xy12345"))
	require.NoError(t, s.Delete("snowflake:etl@xy12345"))
	_, err = s.Get("snowflake:etl@xy12345")
	assert.Equal(t, errors.ErrCodeCredentials, errors.GetErrorCode(err))
}

func TestAccount(t *testing.T) {
	assert.Equal(t, "snowflake:etl@xy12345", Account(models.Warehouse{Driver: "snowflake", Username: "etl", Account: "xy12345", Host: "ignored"}))
	assert.Equal(t, "postgres:etl@db.internal", Account(models.Warehouse{Driver: "postgres", Username: "etl", Host: "db.internal"}))
}

func TestResolvePassword(t *testing.T) {
	keyring.MockInit()
	s := &Store{useKeyring: true}
	require.NoError(t, s.Set("postgres:etl@db", "from-keyring"))

	cfg := models.Warehouse{Driver: "postgres", Username: "etl", Host: "db"}
	require.NoError(t, ResolvePassword(s, &cfg))
	assert.Equal(t, "from-keyring", cfg.Password)

	explicit := models.Warehouse{Driver: "postgres", Username: "etl", Host: "db", Password: "inline"}
	require.NoError(t, ResolvePassword(s, &explicit))
	assert.Equal(t, "inline", explicit.Password)

	lite := models.Warehouse{Driver: "sqlite", Username: "etl"}
	require.NoError(t, ResolvePassword(s, &lite))
	assert.Empty(t, lite.Password)

	missing := models.Warehouse{Driver: "snowflake", Username: "etl", Account: "nope"}
	err := ResolvePassword(s, &missing)
	assert.Equal(t, errors.ErrCodeCredentials, errors.GetErrorCode(err))
}

func TestNeedsPassword(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.Warehouse
		want bool
	}{
		{"snowflake login", models.Warehouse{Driver: "snowflake", Username: "etl", Account: "xy"}, true},
		{"postgres login", models.Warehouse{Driver: "postgres", Username: "etl", Host: "db"}, true},
		{"inline password", models.Warehouse{Driver: "postgres", Username: "etl", Password: "x"}, false},
		{"dsn", models.Warehouse{Driver: "postgres", Username: "etl", DSN: "postgres://db"}, false},
		{"no user", models.Warehouse{Driver: "snowflake", Account: "xy"}, false},
		{"file driver", models.Warehouse{Driver: "duckdb", Username: "etl"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsPassword(tt.cfg))
		})
	}
}
