package export

import (
	"errors"
	"strings"
)

// Format names a supported output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ErrUnsupportedFormat is returned for formats other than csv and pdf.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Dataset is tabular export content. Each row maps a header to its cell.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// File is a rendered document ready to be streamed.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Renderer dispatches datasets to the CSV or PDF exporter.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer builds a renderer with both exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render encodes the dataset. baseName is used for the file name without extension.
func (r *Renderer) Render(format Format, data Dataset, title, baseName string) (*File, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatCSV:
		body, err = r.csv.Render(data)
	case FormatPDF:
		body, err = r.pdf.Render(data, title)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return &File{Name: baseName + "." + string(format), ContentType: format.ContentType(), Body: body}, nil
}
