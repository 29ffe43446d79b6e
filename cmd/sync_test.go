package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbor-legal/docketwatch/internal/docket"
	"github.com/harbor-legal/docketwatch/internal/enrich"
)

func sampleSummary() *docket.RunSummary {
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	return &docket.RunSummary{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Success:    true,
		Clients:    12,
		FetchTerms: 30,
		Metadata:   &docket.MetadataSummary{RecordsSeen: 140, Created: 3, Updated: 7, Unchanged: 120, Skipped: 10},
		Ghost:      &docket.GhostSummary{Scanned: 200, Missing: 4, Warned: 3, Archived: 1},
		Enrichment: &enrich.Summary{Eligible: 9, Selected: 9, Succeeded: 8, Failed: 1, QuotaUsed: 8},
	}
}

func TestPrintRunSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	printRunSummary(&buf, sampleSummary(), false)

	out := buf.String()
	assert.Contains(t, out, "Run succeeded in 1m30s")
	assert.Contains(t, out, "created=3 updated=7")
	assert.Contains(t, out, "archived=1")
	assert.Contains(t, out, "succeeded=8")
}

func TestPrintRunSummary_TextFailure(t *testing.T) {
	s := sampleSummary()
	s.Success = false
	s.Error = "source unreachable"

	var buf bytes.Buffer
	printRunSummary(&buf, s, false)

	assert.Contains(t, buf.String(), "Run failed")
	assert.Contains(t, buf.String(), "error: source unreachable")
}

func TestPrintRunSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	printRunSummary(&buf, sampleSummary(), true)

	var decoded docket.RunSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, 3, decoded.Metadata.Created)
	assert.Equal(t, 8, decoded.Enrichment.Succeeded)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "status", "migrate", "serve"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}
