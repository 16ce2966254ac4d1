// Package extract pulls plain text out of uploaded PDF and Excel documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Kind names a document family; it is also the label used in summary prompts.
type Kind string

const (
	KindPDF   Kind = "PDF"
	KindExcel Kind = "Excel"
)

var (
	ErrUnsupportedType = errors.New("only PDF and Excel files are allowed")
	ErrNoText          = errors.New("no text could be extracted from the file")
	// ErrInvalidDocument wraps parser failures as "invalid <Kind>: <cause>".
	ErrInvalidDocument = errors.New("invalid")
)

// Document is the text extracted from an upload.
type Document struct {
	Text string
	Kind Kind
}

// Supported reports whether filename has an extension Extract can parse.
func Supported(filename string) bool {
	_, ok := kindOf(filename)
	return ok
}

// Extract parses data according to filename's extension. Whitespace-only output is
// reported as ErrNoText.
func Extract(filename string, data []byte) (Document, error) {
	kind, ok := kindOf(filename)
	if !ok {
		return Document{}, ErrUnsupportedType
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".xlsx":
		text, err = xlsxText(data)
	case ".xls":
		text, err = xlsText(data)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w %s: %v", ErrInvalidDocument, kind, err)
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrNoText
	}
	return Document{Text: text, Kind: kind}, nil
}

func kindOf(filename string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, true
	case ".xlsx", ".xls":
		return KindExcel, true
	}
	return "", false
}

func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, renderSheet(name, rows))
	}
	return strings.Join(sheets, "\n\n"), nil
}

func xlsText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", err
	}
	var sheets []string
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, renderSheet(sheet.Name, rows))
	}
	return strings.Join(sheets, "\n\n"), nil
}

// renderSheet writes "Sheet: <name>" followed by one tab-separated line per row.
func renderSheet(name string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("Sheet: ")
	b.WriteString(name)
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}
