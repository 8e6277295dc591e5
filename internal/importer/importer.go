// Package importer parses CSV statement exports into transactions for
// bulk creation. The expected layout is a header row naming at least
// the date, type and amount columns (description and category are
// optional); header position and column order are free, and rows that
// fail to parse are skipped rather than aborting the import.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	enc "github.com/bytebank/backend/internal/encoding"
	"github.com/bytebank/backend/internal/transaction"
)

const (
	colDate        = "date"
	colType        = "type"
	colAmount      = "amount"
	colDescription = "description"
	colCategory    = "category"
)

var dateLayouts = []string{time.DateOnly, "02/01/2006", "02-01-2006"}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Parse reads a statement file and returns create params owned by
// userID. The input encoding is detected and normalized first.
func (s *Service) Parse(r io.Reader, userID uuid.UUID) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols := map[string]int{}

	var params []transaction.CreateParams

	for _, row := range rows {
		if len(cols) == 0 {
			cols = matchHeader(row)
			continue
		}

		p, ok := parseRow(row, cols, userID)
		if !ok {
			continue
		}

		params = append(params, p)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("no header row with date, type and amount columns")
	}

	return params, nil
}

// matchHeader returns the column index per known header name, or an
// empty map if the row lacks the required columns.
func matchHeader(row []string) map[string]int {
	cols := map[string]int{}

	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case colDate, colType, colAmount, colDescription, colCategory:
			cols[strings.ToLower(strings.TrimSpace(cell))] = i
		}
	}

	if _, ok := cols[colDate]; !ok {
		return map[string]int{}
	}

	if _, ok := cols[colType]; !ok {
		return map[string]int{}
	}

	if _, ok := cols[colAmount]; !ok {
		return map[string]int{}
	}

	return cols
}

func parseRow(row []string, cols map[string]int, userID uuid.UUID) (transaction.CreateParams, bool) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[idx])
	}

	date, ok := parseDate(cell(colDate))
	if !ok {
		return transaction.CreateParams{}, false
	}

	txType := transaction.Type(strings.ToLower(cell(colType)))
	if !txType.Valid() {
		return transaction.CreateParams{}, false
	}

	amount, err := parseAmount(cell(colAmount))
	if err != nil || amount <= 0 {
		return transaction.CreateParams{}, false
	}

	return transaction.CreateParams{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Date:        date,
		Description: cell(colDescription),
		Category:    cell(colCategory),
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
