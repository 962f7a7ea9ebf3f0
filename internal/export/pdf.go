package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/mailsift/mailsift/internal/core"
)

// renderPDF writes one section per thread, each member as a block of lines.
func renderPDF(threads []core.Thread) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Email threads", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, thread := range threads {
		label := thread.Label
		if label == "" {
			label = fmt.Sprintf("Thread %d", i+1)
		}

		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 7, label, "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5,
			fmt.Sprintf("%d emails, coherence %.2f", len(thread.Members), thread.Coherence),
			"", 1, "L", false, 0, "")
		pdf.Ln(1)

		for _, member := range thread.Members {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, member.Subject, "", "L", false)
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4.5,
				fmt.Sprintf("%s  |  from %s  |  similarity %.2f  |  concordance %.2f",
					member.Date.Format("2006-01-02"), member.From, member.Similarity, member.Concordance),
				"", "L", false)
			if member.Summary != "" {
				pdf.MultiCell(0, 4.5, member.Summary, "", "L", false)
			}
			pdf.Ln(1.5)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
