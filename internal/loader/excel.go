package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/table"
)

func init() {
	for _, f := range []string{"xlsx", "xls", "excel"} {
		Register(f, parseExcel)
	}
}

// oleSignature starts legacy BIFF (.xls) workbooks.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// parseExcel reads the first sheet of a workbook. The first non-empty row is
// the header.
func parseExcel(data []byte, _ Options) (*table.Table, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return nil, fmt.Errorf("%w: legacy xls workbook", core.ErrUnsupportedFormat)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read workbook sheet %s: %w", sheets[0], err)
	}

	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, core.ErrEmptyFile
	}

	t := table.New(headerNames(rows[start])...)
	for _, rec := range rows[start+1:] {
		if blank(rec) {
			continue
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			if v = strings.TrimSpace(v); v != "" {
				row[i] = v
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}
