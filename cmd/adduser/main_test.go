package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CreatesUserInSQLite(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "bilancio.db")
	args := []string{"-backend", "sqlite", "-db", db, "-email", "Ada@Example.com", "-first", "Ada", "-last", "Lovelace", "-role", "admin"}

	var stdout, stderr bytes.Buffer
	code := run(ctx, args, strings.NewReader("analytical-engine\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "created Admin Ada Lovelace <ada@example.com>")

	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{Type: backend.SQLiteBackend, SQLiteDBPath: db})
	require.NoError(t, err)
	defer res.Cleanup()

	u, err := res.Store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, u.Role)
	assert.True(t, u.Active)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "analytical-engine"))

	stdout.Reset()
	stderr.Reset()
	code = run(ctx, args, strings.NewReader("analytical-engine\n"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "already exists")
}

func TestRun_RejectsInvalidInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-backend", "memory", "-email", "not-an-email", "-first", "Ada", "-password", "short", "-role", "owner"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	out := stderr.String()
	assert.Contains(t, out, "last_name:")
	assert.Contains(t, out, "email:")
	assert.Contains(t, out, "password:")
	assert.Contains(t, out, "role:")
	assert.Empty(t, stdout.String())
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-nope"}, strings.NewReader(""), &stdout, &stderr))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, "Admin", normalizeRole(" ADMIN "))
	assert.Equal(t, "User", normalizeRole(""))
	assert.Equal(t, "owner", normalizeRole("owner"))
}
