package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vc-research-engine/internal/agent"
)

func TestPrintAnswer_TextOnly(t *testing.T) {
	var buf bytes.Buffer
	err := printAnswer(&buf, &agent.ChatAnswer{Response: "Acme builds widgets."})
	require.NoError(t, err)
	assert.Equal(t, "Acme builds widgets.\n", buf.String())
}

func TestPrintAnswer_WithVisualization(t *testing.T) {
	answer := &agent.ChatAnswer{
		Response: "Revenue grew every quarter.",
		Visualization: map[string]any{
			"type":   "line",
			"labels": []any{"Q1", "Q2"},
			"values": []any{10, 20},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printAnswer(&buf, answer))

	out := buf.String()
	assert.Contains(t, out, "Revenue grew every quarter.")
	assert.Contains(t, out, `"type": "line"`)
	assert.Contains(t, out, `"labels"`)
}

func TestPrintAnswer_EmptyVisualizationOmitted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAnswer(&buf, &agent.ChatAnswer{
		Response:      "No chart for this one.",
		Visualization: map[string]any{},
	}))
	assert.Equal(t, "No chart for this one.\n", buf.String())
}

func TestLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rep, err := loadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", rep.Company)
	assert.Contains(t, rep.Sections, "company_info")
}

func TestLoadReport_MissingFile(t *testing.T) {
	_, err := loadReport(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read report")
}

func TestLoadReport_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := loadReport(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse report")
}
