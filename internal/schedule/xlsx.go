package schedule

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads a schedule from the first sheet of an Excel workbook.
// Cells are validated with the same rules as CSV rows: column A is the time
// in milliseconds, column B the setpoint, with an optional header row.
func LoadXLSX(path string) (Sequence, error) {
	// excelize reports a bare *PathError for missing files, so stat first to
	// keep read-failure classification consistent with LoadCSV.
	if _, err := os.Stat(path); err != nil {
		return nil, classifyReadError(path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySequence
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	// Drop trailing padding cells beyond the two schedule columns; excelize
	// returns ragged rows depending on how the sheet was written.
	trimmed := make([]rawRow, 0, len(rows))
	for i, cells := range rows {
		if len(cells) > 2 {
			cells = cells[:2]
		}
		trimmed = append(trimmed, rawRow{line: i, cells: cells})
	}

	return parseRows(trimmed)
}
