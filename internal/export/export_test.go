package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

func sampleThreads() []core.Thread {
	date := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return []core.Thread{
		{
			ID:        "thread-a",
			Label:     "factura junio",
			Coherence: 0.91,
			Members: []core.ThreadMember{
				{
					Index:       "idx-1",
					Subject:     "Factura junio",
					Date:        date,
					From:        "marta@corp.com",
					To:          []string{"inbox@corp.com", "copy@corp.com"},
					Summary:     "Factura adjunta",
					Concordance: 1.0,
					Similarity:  0.88,
				},
				{
					Index:       "idx-2",
					Subject:     "Re: Factura junio",
					Date:        date.Add(time.Hour),
					From:        "inbox@corp.com",
					To:          []string{"marta@corp.com"},
					Concordance: 0.5,
					Similarity:  0.74,
				},
			},
		},
		{
			ID:        "thread-b",
			Label:     "pedido marzo",
			Coherence: 1.0,
			Members: []core.ThreadMember{
				{Index: "idx-3", Subject: "Pedido marzo", Date: date, From: "pedro@corp.com"},
			},
		},
	}
}

func TestExportExcelRoundTrip(t *testing.T) {
	s := NewService(zap.NewNop())

	result, err := s.Export(sampleThreads(), FormatExcel)
	require.NoError(t, err)
	assert.Equal(t, "threads.xlsx", result.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.MimeType)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.NotContains(t, sheets, "Sheet1")

	rows, err := f.GetRows("factura junio")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per member")
	assert.Equal(t, excelHeader, rows[0])
	assert.Equal(t, "idx-1", rows[1][0])
	assert.Equal(t, "Re: Factura junio", rows[2][1])
	assert.Equal(t, "inbox@corp.com, copy@corp.com", rows[1][3])
}

func TestExportPDF(t *testing.T) {
	s := NewService(zap.NewNop())

	result, err := s.Export(sampleThreads(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "threads.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.MimeType)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportUnsupportedFormat(t *testing.T) {
	s := NewService(zap.NewNop())

	_, err := s.Export(sampleThreads(), Format("csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportEmptyThreads(t *testing.T) {
	s := NewService(zap.NewNop())

	result, err := s.Export(nil, FormatExcel)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
}

func TestSheetTitle(t *testing.T) {
	seen := make(map[string]int)

	assert.Equal(t, "factura junio", sheetTitle("factura junio", 1, seen))
	assert.Equal(t, "factura junio 2", sheetTitle("factura junio", 2, seen))
	assert.Equal(t, "Thread 3", sheetTitle("", 3, seen))
	assert.Equal(t, "a b", sheetTitle("a:b", 4, seen), "forbidden runes are replaced")

	long := sheetTitle("una etiqueta de hilo larguisima con muchas palabras", 5, seen)
	assert.LessOrEqual(t, len(long), 31)
}
