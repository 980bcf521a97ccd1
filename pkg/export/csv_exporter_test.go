package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recapTable() Table {
	table := Table{Columns: []string{"Date", "Santri", "Points"}}
	table.AddRow("2026-03-01", "Ahmad", "5")
	table.AddRow("2026-03-02", "Fatimah", "-3")
	return table
}

func TestRenderCSV(t *testing.T) {
	payload, err := RenderCSV(recapTable())
	require.NoError(t, err)
	assert.Equal(t, "Date,Santri,Points\n2026-03-01,Ahmad,5\n2026-03-02,Fatimah,-3\n", string(payload))
}

func TestRenderCSVRejectsRaggedRow(t *testing.T) {
	table := Table{Columns: []string{"Date", "Santri"}}
	table.AddRow("2026-03-01")
	_, err := RenderCSV(table)
	require.Error(t, err)
}

func TestRenderCSVRequiresColumns(t *testing.T) {
	_, err := RenderCSV(Table{})
	require.Error(t, err)
}

func TestRenderPDFProducesDocument(t *testing.T) {
	payload, err := RenderPDF(recapTable(), "Rekap Perilaku")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
