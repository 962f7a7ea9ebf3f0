package export

import (
	"fmt"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/xuri/excelize/v2"
)

var excelHeader = []string{"Index", "Subject", "From", "To", "Date", "Summary", "Concordance", "Similarity"}

// renderExcel writes one worksheet per thread with one row per member.
func renderExcel(threads []core.Thread) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	seen := make(map[string]int)
	for i, thread := range threads {
		title := sheetTitle(thread.Label, i+1, seen)
		if _, err := f.NewSheet(title); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", title, err)
		}

		for col, name := range excelHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(title, cell, name); err != nil {
				return nil, err
			}
		}

		for row, member := range thread.Members {
			values := []any{
				member.Index,
				member.Subject,
				member.From,
				joinAddresses(member.To),
				member.Date.Format("2006-01-02 15:04"),
				member.Summary,
				member.Concordance,
				member.Similarity,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				if err := f.SetCellValue(title, cell, v); err != nil {
					return nil, err
				}
			}
		}
	}

	// Drop the implicit default sheet when real content exists.
	if len(threads) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinAddresses(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
