package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dialect", "plain", "")
	fs.String("format", "text", "")
	fs.Bool("verbose", false, "")
	fs.Uint64("limit", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

// chdir switches to a fresh temp dir so no stray predsql.yaml is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(New(), testFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, Config{Dialect: "plain", Format: "text"}, cfg)
}

func TestLoad_Precedence(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "predsql.yaml"), []byte("dialect: postgres\nentity: User\nlimit: 7\nformat: json\n"), 0644))
	t.Setenv("PREDSQL_ENTITY", "Role")
	t.Setenv("PREDSQL_DB", "data.db")

	v := New()
	cfg, err := Load(v, testFlags(t, "--dialect", "sqlite"), "")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Dialect, "flag beats file")
	assert.Equal(t, "Role", cfg.Entity, "env beats file")
	assert.Equal(t, "data.db", cfg.DB, "env beats default")
	assert.Equal(t, uint64(7), cfg.Limit, "file beats default")
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "predsql.yaml", filepath.Base(File(v)))
}

func TestLoad_ExplicitFile(t *testing.T) {
	chdir(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: schema.cue\nverbose: true\n"), 0644))

	cfg, err := Load(New(), nil, path)
	require.NoError(t, err)

	assert.Equal(t, "schema.cue", cfg.Fields)
	assert.True(t, cfg.Verbose)
}

func TestLoad_Errors(t *testing.T) {
	dir := chdir(t)

	_, err := Load(New(), nil, filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("dialect: [unclosed\n"), 0644))
	_, err = Load(New(), nil, bad)
	assert.ErrorContains(t, err, "read config")

	t.Setenv("PREDSQL_FORMAT", "xml")
	_, err = Load(New(), nil, "")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}
