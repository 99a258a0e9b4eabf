package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/store"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.db")
	db, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveBundle(context.Background(), &domain.PlanBundle{
		StudentID:  "ada@example.com",
		Password:   "0123456789abcde",
		Phase1Plan: "# Onboarding\n\nDear Ada,\n\nWelcome.",
		Phase2Plan: "# Training\n\nDear Ada,\n\nKeep going.",
		Phase1PDF:  []byte("%PDF-phase1"),
		Phase2PDF:  []byte("%PDF-phase2"),
		Milestones: []string{"Pitch"},
	}))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(viper.New(), nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestUsersCommand(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, "users", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com\n", out)
}

func TestShowCommand(t *testing.T) {
	db := seedDB(t)

	out, err := run(t, "show", "ada@example.com", "--db", db, "--phase", "2", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "Keep going.")

	out, err = run(t, "show", "ada@example.com", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome.")

	_, err = run(t, "show", "ada@example.com", "--db", db, "--phase", "3")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = run(t, "show", "nobody@example.com", "--db", db)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportPDFCommand(t *testing.T) {
	db := seedDB(t)
	dir := t.TempDir()

	_, err := run(t, "export-pdf", "ada@example.com", "--db", db, "--out", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "UPBEAT_onboarding_plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-phase1", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "UPBEAT_training_plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-phase2", string(data))
}
