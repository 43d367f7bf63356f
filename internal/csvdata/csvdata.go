// Package csvdata loads a scoring.Dataset from a data file, grounded on
// the original's csvloader.cpp: a character whitelist of
// [0-9.+-e], comma/newline as separators, and the last column of each
// row treated as the target value with the remaining columns as
// variables.
package csvdata

import (
	"os"
	"strconv"
	"strings"

	"symreg/internal/scoring"
	"symreg/internal/symerr"
)

// Load reads path and parses it into a scoring.Dataset. Every row must
// have the same column count; NumVars is that count minus one, the last
// column holding the row's result (§csvloader.cpp "last column holds
// result").
func Load(path string) (scoring.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return scoring.Dataset{}, symerr.Wrap(symerr.Data, err, "opening csv file")
	}

	rows, err := splitRows(string(raw))
	if err != nil {
		return scoring.Dataset{}, err
	}
	if len(rows) == 0 {
		return scoring.Dataset{}, symerr.New(symerr.Data, "csv file has no usable rows")
	}

	width := len(rows[0])
	for _, row := range rows {
		if len(row) != width {
			return scoring.Dataset{}, symerr.New(symerr.Data, "csv rows do not all have the same column count")
		}
	}
	if width < 2 {
		return scoring.Dataset{}, symerr.New(symerr.Data, "csv needs at least one variable column and a result column")
	}

	numVars := width - 1
	d := scoring.Dataset{
		Points:  make([][]float64, len(rows)),
		Results: make([]float64, len(rows)),
		NumVars: numVars,
	}
	for i, row := range rows {
		d.Points[i] = row[:numVars]
		d.Results[i] = row[numVars]
	}
	return d, nil
}

// splitRows tokenizes raw into rows of float64 by hand, matching the
// original's single-pass character classifier rather than going through
// encoding/csv: the grammar is not quoted CSV, it is a bare
// number/separator whitelist.
func splitRows(raw string) ([][]float64, error) {
	var rows [][]float64
	var current []float64
	var part strings.Builder

	flush := func(pos int) error {
		if part.Len() == 0 {
			return nil
		}
		val, err := strconv.ParseFloat(part.String(), 64)
		if err != nil {
			return symerr.Wrap(symerr.Data, err, "invalid number \""+part.String()+"\" at position "+strconv.Itoa(pos))
		}
		current = append(current, val)
		part.Reset()
		return nil
	}

	for pos := 0; pos < len(raw); pos++ {
		c := raw[pos]
		switch c {
		case ' ', '\r', '\t':
			continue
		case ',':
			if err := flush(pos); err != nil {
				return nil, err
			}
			continue
		case '\n':
			if part.Len() == 0 && len(current) == 0 {
				continue
			}
			if err := flush(pos); err != nil {
				return nil, err
			}
			rows = append(rows, current)
			current = nil
			continue
		}
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' && c != 'e' {
			return nil, symerr.New(symerr.Data, "unexpected character '"+string(c)+"' at position "+strconv.Itoa(pos))
		}
		part.WriteByte(c)
	}
	if part.Len() > 0 || len(current) > 0 {
		if err := flush(len(raw)); err != nil {
			return nil, err
		}
		rows = append(rows, current)
	}
	return rows, nil
}
