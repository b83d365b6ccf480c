package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/sources"
)

func TestParseMigrateFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	require.Equal(t, defaultMigrationTimeout, opts.Timeout)

	opts, err = parseMigrateFlags([]string{"--timeout", "30s"})
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestParseDBResetFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseDBResetFlags([]string{"--yes", "--seed"})
	require.NoError(t, err)
	require.True(t, opts.Yes)
	require.True(t, opts.Seed)
	require.False(t, opts.AllowRemote)
	require.Equal(t, defaultMigrationTimeout, opts.Timeout)
}

func TestParseVerifyRunFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseVerifyRunFlags([]string{"--license", "lic-123", "--timeout", "2m"})
	require.NoError(t, err)
	require.Equal(t, "lic-123", opts.LicenseID)
	require.Equal(t, 2*time.Minute, opts.Timeout)

	_, err = parseVerifyRunFlags([]string{"--timeout", "-1s"})
	require.Error(t, err)
}

func TestParseListTasksFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseListTasksFlags([]string{"--status", "pending", "--limit", "5"})
	require.NoError(t, err)
	require.Equal(t, "pending", opts.Status)
	require.Equal(t, 5, opts.Limit)

	_, err = parseListTasksFlags([]string{"--limit", "0"})
	require.Error(t, err)

	_, err = parseListTasksFlags([]string{"--offset", "-1"})
	require.Error(t, err)
}

func TestIsLikelyRemoteHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host   string
		remote bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"dev-box.local", false},
		{"", false},
		{"10.1.2.3", true},
		{"db.prod.example.com", true},
		{"LOCALHOST", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.remote, isLikelyRemoteHost(tt.host))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"licensure"`, quoteIdentifier("licensure"))
	require.Equal(t, `"we""ird"`, quoteIdentifier(`we"ird`))
}

func TestDBResetConfirmOptionsRemoteHostForcesPrompt(t *testing.T) {
	t.Parallel()

	opts := dbResetConfirmOptions{yes: true, target: "database"}
	require.True(t, opts.IsYes())

	opts.remoteHost = "db.prod.example.com"
	require.False(t, opts.IsYes())
	require.Contains(t, opts.GetWarning(), "db.prod.example.com")
}

func TestPrintRunSummary(t *testing.T) {
	t.Parallel()

	summary := &model.RunSummary{
		JobRunID:     "run-42",
		Processed:    10,
		AutoVerified: 7,
		TasksCreated: 2,
		Errors:       1,
		ErrorSamples: []string{"CA RN12345: lookup timeout"},
	}

	var buf bytes.Buffer
	require.NoError(t, printRunSummary(&buf, summary, 1500*time.Millisecond))

	out := buf.String()
	require.Contains(t, out, "run-42")
	require.Contains(t, out, "processed:")
	require.Contains(t, out, "1.5s")
	require.Contains(t, out, "1 lookup error(s) occurred")
	require.Contains(t, out, "CA RN12345: lookup timeout")
}

func TestPrintRunSummaryCleanRunOmitsErrorBanner(t *testing.T) {
	t.Parallel()

	summary := &model.RunSummary{JobRunID: "run-7", Processed: 3, AutoVerified: 3}

	var buf bytes.Buffer
	require.NoError(t, printRunSummary(&buf, summary, time.Second))
	require.NotContains(t, buf.String(), "lookup error")
}

func TestPrintRunListEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printRunList(&buf, nil))
	require.Equal(t, "no runs found\n", buf.String())
}

func TestPrintTaskList(t *testing.T) {
	t.Parallel()

	assignee := "reviewer@example.com"
	tasks := []*model.VerificationTask{
		{
			ID:        "task-1",
			LicenseID: "lic-1",
			Status:    model.TaskStatusPending,
			Priority:  model.TaskPriorityDefault,
			Reason:    "no automated source for jurisdiction MT",
			DueDate:   time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			Assignee:  &assignee,
		},
		{
			ID:        "task-2",
			LicenseID: "lic-2",
			Status:    model.TaskStatusInProgress,
			Priority:  model.TaskPriorityHigh,
			Reason:    "license expiring soon",
			DueDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printTaskList(&buf, tasks))

	out := buf.String()
	require.Contains(t, out, "task-1")
	require.Contains(t, out, "reviewer@example.com")
	require.Contains(t, out, "2026-09-15")
	require.Contains(t, out, "no automated source for jurisdiction MT")
	// Unassigned tasks render a placeholder instead of an empty column.
	require.Contains(t, out, "—")
}

func TestPrintJurisdictions(t *testing.T) {
	t.Parallel()

	registry := sources.NewRegistryWithSpecs([]sources.Spec{
		{SourceID: "oh-board", Jurisdiction: "OH", Kind: sources.KindAPI},
		{SourceID: "ca-board", Jurisdiction: "CA", Kind: sources.KindScrape},
	})

	var buf bytes.Buffer
	require.NoError(t, printJurisdictions(&buf, registry))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "JURISDICTION")
	// ListAutomated sorts codes, so CA precedes OH.
	require.Contains(t, lines[1], "ca-board")
	require.Contains(t, lines[2], "oh-board")
}

func TestCommandsRegistry(t *testing.T) {
	t.Parallel()

	registry := commands()
	for _, name := range []string{
		"migrate", "db-reset", "db-seed", "verify-run", "list-runs", "list-tasks", "list-jurisdictions",
	} {
		cmd, ok := registry[name]
		require.True(t, ok, "command %q missing", name)
		require.Equal(t, name, cmd.name)
		require.NotNil(t, cmd.run)
		require.NotEmpty(t, cmd.description)
	}
}
