package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/insight/internal/dataset/domain"
)

func TestParseUploadCSV(t *testing.T) {
	content := []byte("CustomerID,Amount,Date,Category,Channel\n" +
		"CUST-1001,120,2024-01-15,Electronics,Online\n" +
		"CUST-1002,$250.50,2024-02-03,Fashion,In-Store\n")

	txns, err := parseUpload("data.csv", content)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "CUST-1001", txns[0].CustomerID)
	assert.Equal(t, 120.0, txns[0].Amount)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "Electronics", txns[0].Category)

	// Currency symbols are stripped.
	assert.Equal(t, 250.50, txns[1].Amount)
	assert.Equal(t, "In-Store", txns[1].Channel)
}

func TestParseUploadHeaderVariants(t *testing.T) {
	content := []byte("Customer ID,Total Amount,Purchase Date,Product Category,Sales Channel\n" +
		"CUST-1,99,2024-03-01,Home,Online\n")

	txns, err := parseUpload("data.csv", content)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "CUST-1", txns[0].CustomerID)
	assert.Equal(t, 99.0, txns[0].Amount)
}

func TestParseUploadSkipsBlankRows(t *testing.T) {
	content := []byte("CustomerID,Amount,Date,Category,Channel\n" +
		"CUST-1,50,2024-01-01,Home,Online\n" +
		",,,,\n" +
		"CUST-2,60,2024-01-02,Home,Online\n")

	txns, err := parseUpload("data.csv", content)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestParseUploadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]interface{}{
		{"CustomerID", "Amount", "Date", "Category", "Channel"},
		{"CUST-1", 75, "2024-04-10", "Sports", "Mobile App"},
		{"CUST-2", 80.5, "2024-04-12", "Footwear", "Online"},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	txns, err := parseUpload("data.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Sports", txns[0].Category)
	assert.Equal(t, 80.5, txns[1].Amount)
}

func TestParseUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{
			name:     "empty file",
			filename: "data.csv",
			content:  nil,
			want:     domain.ErrEmptyFile,
		},
		{
			name:     "unsupported extension",
			filename: "data.pdf",
			content:  []byte("x"),
			want:     domain.ErrUnsupportedFormat,
		},
		{
			name:     "missing columns",
			filename: "data.csv",
			content:  []byte("CustomerID,Amount\nCUST-1,5\n"),
			want:     domain.ErrMissingColumns,
		},
		{
			name:     "header only",
			filename: "data.csv",
			content:  []byte("CustomerID,Amount,Date,Category,Channel\n"),
			want:     domain.ErrNoRows,
		},
		{
			name:     "negative amount",
			filename: "data.csv",
			content: []byte("CustomerID,Amount,Date,Category,Channel\n" +
				"CUST-1,-5,2024-01-01,Home,Online\n"),
			want: domain.ErrInvalidTransaction,
		},
		{
			name:     "bad date",
			filename: "data.csv",
			content: []byte("CustomerID,Amount,Date,Category,Channel\n" +
				"CUST-1,5,yesterday,Home,Online\n"),
			want: domain.ErrInvalidTransaction,
		},
		{
			name:     "missing customer id",
			filename: "data.csv",
			content: []byte("CustomerID,Amount,Date,Category,Channel\n" +
				",5,2024-01-01,Home,Online\n"),
			want: domain.ErrInvalidTransaction,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseUpload(tc.filename, tc.content)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseUploadDateLayouts(t *testing.T) {
	content := []byte("CustomerID,Amount,Date,Category,Channel\n" +
		"CUST-1,10,2024-05-01,Home,Online\n" +
		"CUST-2,10,05/20/2024,Home,Online\n" +
		"CUST-3,10,2024-05-01 10:30:00,Home,Online\n")

	txns, err := parseUpload("data.csv", content)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, time.May, txns[1].Date.Month())
	assert.Equal(t, 20, txns[1].Date.Day())
}
