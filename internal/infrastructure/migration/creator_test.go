package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"create_leases", "create_leases"},
		{"Add Paid Through Index", "add_paid_through_index"},
		{"add-pump--topups", "add_pump_topups"},
		{"  trailing  ", "trailing"},
		{"tariff v2!", "tariff_v2"},
		{"水费", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestParseFileName(t *testing.T) {
	v, name, dir, ok := parseFileName("000004_create_audit_logs.down.sql")
	require.True(t, ok)
	assert.Equal(t, uint(4), v)
	assert.Equal(t, "create_audit_logs", name)
	assert.Equal(t, "down", dir)

	for _, bad := range []string{"README.md", "0001.up.sql", "abc_name.up.sql", "000001_x.sql", "000001_x.up.txt"} {
		_, _, _, ok := parseFileName(bad)
		assert.False(t, ok, bad)
	}
}

func TestCreate_NumbersSequentially(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")

	first, err := Create(dir, "Create Ledger", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_ledger.up.sql"), first.UpPath)

	second, err := Create(dir, "add index", "speed up tenant lookups")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	up, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Description: speed up tenant lookups")
	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
}

func TestCreate_RejectsEmptyName(t *testing.T) {
	_, err := Create(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000002_create_leases.up.sql",
		"000002_create_leases.down.sql",
		"000001_create_ledger.up.sql",
		"000010_only_up.up.sql",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	entries, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Version: 1, Name: "create_ledger"},
		{Version: 2, Name: "create_leases", HasDown: true},
		{Version: 10, Name: "only_up"},
	}, entries)
	assert.Equal(t, "000010_only_up", entries[2].String())
}

func TestScan_MissingDirectory(t *testing.T) {
	entries, err := Scan(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScan_ShippedMigrationsArePaired(t *testing.T) {
	entries, err := Scan(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "versions must be contiguous")
		assert.True(t, e.HasDown, "%s has no down migration", e)
	}
}
