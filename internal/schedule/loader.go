package schedule

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header column labels. A first row matching both labels exactly is treated
// as a header and skipped; it is not counted as data.
const (
	headerTime     = "time"
	headerSetPoint = "set_point"
)

// Sentinel errors for load failures. Read failures are classified so callers
// can show a distinct message per kind; anything else is wrapped as an
// unclassified I/O error.
var (
	ErrNotFound         = errors.New("schedule file not found")
	ErrPermissionDenied = errors.New("schedule file not readable")
	ErrEmptySequence    = errors.New("schedule contains no rows")
	ErrUnsupportedType  = errors.New("unsupported schedule file type")
)

// LoadFile loads a schedule, dispatching on the file extension.
// Supported extensions are .csv and .xlsx.
func LoadFile(path string) (Sequence, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// LoadCSV reads a comma-separated schedule file and returns a validated
// sequence. The file must contain two columns per row: an integer time in
// milliseconds and a finite float setpoint. Parsing stops at the first
// invalid row, which is reported via *ParseError; no partial sequence is
// returned.
func LoadCSV(path string) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classifyReadError(path, err)
	}
	return parseRows(splitCSV(string(data)))
}

// classifyReadError maps an I/O failure onto one of the sentinel errors.
func classifyReadError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("failed to read schedule file %s: %w", path, err)
	}
}

// rawRow is one non-blank row of trimmed cells together with its zero-based
// position in the source file, so parse errors report the real line number.
type rawRow struct {
	line  int
	cells []string
}

// splitCSV breaks file contents into rows of trimmed cells. Blank lines are
// dropped but still counted toward line positions; a trailing newline does
// not produce an empty row.
func splitCSV(contents string) []rawRow {
	var rows []rawRow
	for n, line := range strings.Split(contents, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, rawRow{line: n, cells: cells})
	}
	return rows
}

// parseRows converts raw rows into a Sequence, skipping a literal header row
// in first position. Row indexes in errors are the zero-based file positions
// carried by the rows.
func parseRows(rows []rawRow) (Sequence, error) {
	seq := make(Sequence, 0, len(rows))

	for i, raw := range rows {
		if i == 0 && isHeader(raw.cells) {
			continue
		}

		row, ok := parseRow(raw.cells)
		if !ok {
			return nil, &ParseError{Row: raw.line, Raw: strings.Join(raw.cells, ",")}
		}
		seq = append(seq, row)
	}

	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	return seq, nil
}

// isHeader reports whether cells are exactly the header labels.
func isHeader(cells []string) bool {
	return len(cells) == 2 && cells[0] == headerTime && cells[1] == headerSetPoint
}

// parseRow converts a two-cell row into a Row. The time cell must parse as
// an integer and the setpoint cell as a finite float.
func parseRow(cells []string) (Row, bool) {
	if len(cells) != 2 {
		return Row{}, false
	}

	timeMs, err := strconv.ParseInt(cells[0], 10, 64)
	if err != nil {
		return Row{}, false
	}

	setPoint, err := strconv.ParseFloat(cells[1], 64)
	if err != nil || math.IsNaN(setPoint) || math.IsInf(setPoint, 0) {
		return Row{}, false
	}

	return Row{TimeMs: timeMs, SetPoint: setPoint}, true
}
