package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Waktu", "DS-301", "DS-302"},
		Rows: []map[string]string{
			{"Waktu": "07:00-07:50", "DS-301": "Kalkulus (A) [Konflik: Dosen bentrok]"},
			{"Waktu": "08:00-08:50", "DS-302": "Fisika (B), Kimia (C)"},
		},
		Tones: map[int]map[string]Tone{0: {"DS-301": ToneDanger}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Waktu,DS-301,DS-302\n07:00-07:50,Kalkulus (A) [Konflik: Dosen bentrok],\n08:00-08:50,,\"Fisika (B), Kimia (C)\"\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Jadwal Senin")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterWideTablePaginates(t *testing.T) {
	data := Dataset{Headers: []string{"Waktu"}}
	for i := 0; i < 8; i++ {
		data.Headers = append(data.Headers, string(rune('A'+i)))
	}
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"Waktu": "07:00-07:50", "A": "Algoritma dan Struktur Data (A), Basis Data (B)"})
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillUsableWidth(t *testing.T) {
	widths := columnWidths(4, 277)
	var total float64
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, 277, total, 0.001)
	assert.GreaterOrEqual(t, widths[0], firstColMin)
}
