// Package export renders query results to downloadable documents.
package export

import (
	"fmt"
	"strings"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

// Format selects the output document type.
type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

// Result is a rendered export document.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Service renders thread lists to binary documents.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new export service
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Export renders the threads in the requested format.
func (s *Service) Export(threads []core.Thread, format Format) (*Result, error) {
	switch format {
	case FormatExcel:
		data, err := renderExcel(threads)
		if err != nil {
			return nil, fmt.Errorf("excel export failed: %w", err)
		}
		return &Result{
			Data:     data,
			Filename: "threads.xlsx",
			MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	case FormatPDF:
		data, err := renderPDF(threads)
		if err != nil {
			return nil, fmt.Errorf("pdf export failed: %w", err)
		}
		return &Result{
			Data:     data,
			Filename: "threads.pdf",
			MimeType: "application/pdf",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// sheetTitle turns a thread label into a legal, unique worksheet name.
// Excel caps sheet names at 31 characters and forbids a handful of runes.
func sheetTitle(label string, ordinal int, seen map[string]int) string {
	title := label
	if title == "" {
		title = fmt.Sprintf("Thread %d", ordinal)
	}
	replacer := strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
	title = strings.TrimSpace(replacer.Replace(title))
	title = strings.TrimSpace(textutil.TruncateText(title, 28))
	if title == "" {
		title = fmt.Sprintf("Thread %d", ordinal)
	}
	seen[title]++
	if seen[title] > 1 {
		title = fmt.Sprintf("%s %d", title, seen[title])
	}
	return title
}
