package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Date", "Shift", "Status"},
		Rows: []map[string]string{
			{"Date": "2026-03-20", "Shift": "morning", "Status": "pending"},
			{"Date": "2026-03-21", "Shift": "night", "Status": "accepted"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	payload, err := RenderCSV(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Shift,Status", lines[0])
	assert.Equal(t, "2026-03-20,morning,pending", lines[1])
}

func TestRenderCSVRequiresHeaders(t *testing.T) {
	_, err := RenderCSV(Dataset{})
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	payload, err := RenderPDF(sampleDataset(), "Duty Requests")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}
