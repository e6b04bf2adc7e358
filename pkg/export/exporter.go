package export

import (
	"fmt"
	"strings"
)

// Format names a rendered export type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts case-insensitive format names.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Dataset defines tabular export content. Summary lines are rendered above
// the table in PDF output and ignored by CSV.
type Dataset struct {
	Title   string
	Summary []string
	Headers []string
	Rows    [][]string
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// RendererFor returns the renderer for f.
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", kind, i, len(row), len(d.Headers))
		}
	}
	return nil
}
