package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/smallbiznis/insight/internal/dataset/domain"
)

// requiredColumns are matched case-insensitively as substrings of the header
// cells, so "Customer ID", "customerID" and "CUSTOMERID" all resolve.
var requiredColumns = []string{"customerid", "amount", "date", "category", "channel"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
}

func parseUpload(filename string, content []byte) ([]domain.Transaction, error) {
	if len(content) == 0 {
		return nil, domain.ErrEmptyFile
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(content)
	case ".xlsx":
		return parseXLSX(content)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func parseCSV(content []byte) ([]domain.Transaction, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsToTransactions(rows)
}

func parseXLSX(content []byte) ([]domain.Transaction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrNoRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return rowsToTransactions(rows)
}

func rowsToTransactions(rows [][]string) ([]domain.Transaction, error) {
	if len(rows) == 0 {
		return nil, domain.ErrNoRows
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	txns := make([]domain.Transaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		txn, err := rowToTransaction(columns, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}

	if len(txns) == 0 {
		return nil, domain.ErrNoRows
	}
	return txns, nil
}

type columnIndex struct {
	customerID int
	amount     int
	date       int
	category   int
	channel    int
}

func mapColumns(header []string) (columnIndex, error) {
	found := map[string]int{}
	for i, cell := range header {
		normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(cell), " ", ""))
		for _, want := range requiredColumns {
			if _, ok := found[want]; ok {
				continue
			}
			if strings.Contains(normalized, want) {
				found[want] = i
			}
		}
	}

	missing := make([]string, 0)
	for _, want := range requiredColumns {
		if _, ok := found[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}

	return columnIndex{
		customerID: found["customerid"],
		amount:     found["amount"],
		date:       found["date"],
		category:   found["category"],
		channel:    found["channel"],
	}, nil
}

func rowToTransaction(columns columnIndex, row []string) (domain.Transaction, error) {
	customerID := strings.TrimSpace(cell(row, columns.customerID))
	if customerID == "" {
		return domain.Transaction{}, fmt.Errorf("%w: empty customer id", domain.ErrInvalidTransaction)
	}

	amount, err := parseAmount(cell(row, columns.amount))
	if err != nil {
		return domain.Transaction{}, err
	}

	date, err := parseDate(cell(row, columns.date))
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		CustomerID: customerID,
		Amount:     amount,
		Date:       date,
		Category:   strings.TrimSpace(cell(row, columns.category)),
		Channel:    strings.TrimSpace(cell(row, columns.channel)),
	}, nil
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", domain.ErrInvalidTransaction, raw)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive, got %q", domain.ErrInvalidTransaction, raw)
	}
	return amount, nil
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", domain.ErrInvalidTransaction, raw)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
