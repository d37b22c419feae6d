package sheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFixture(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "profiles.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellValue(t *testing.T, path, cell string) string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue(f.GetSheetName(0), cell)
	require.NoError(t, err)
	return value
}

func TestOpenCreatesPhoneColumns(t *testing.T) {
	path := writeFixture(t, [][]string{
		{"URL", "Name"},
		{"example.org/dr-a", "Dr. A"},
	})

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 2, w.RowCount())
	require.NoError(t, w.Save())

	assert.Equal(t, "Phone1", cellValue(t, path, "C1"))
	assert.Equal(t, "Phone2", cellValue(t, path, "D1"))
}

func TestOpenReusesExistingPhoneColumns(t *testing.T) {
	path := writeFixture(t, [][]string{
		{"URL", "Phone1", "Phone2"},
		{"example.org/dr-a", "stale", "stale"},
	})

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.SetPhones(2, "55 1234 5678", ""))
	require.NoError(t, w.Save())

	assert.Equal(t, "55 1234 5678", cellValue(t, path, "B2"))
	assert.Equal(t, "", cellValue(t, path, "C2"))
}

func TestURLReadsColumnA(t *testing.T) {
	path := writeFixture(t, [][]string{
		{"URL"},
		{"  https://example.org/dr-a  "},
		{""},
	})

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	url, err := w.URL(2)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/dr-a", url)

	url, err = w.URL(3)
	require.NoError(t, err)
	assert.Equal(t, "", url)
}

func TestSetPhonesPersistsAcrossSave(t *testing.T) {
	path := writeFixture(t, [][]string{
		{"URL"},
		{"example.org/dr-a"},
		{"example.org/dr-b"},
	})

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.SetPhones(2, "55 1234 5678", "55 9876 5432"))
	require.NoError(t, w.SetPhones(3, "No phone found", ""))
	require.NoError(t, w.Save())

	assert.Equal(t, "55 1234 5678", cellValue(t, path, "B2"))
	assert.Equal(t, "55 9876 5432", cellValue(t, path, "C2"))
	assert.Equal(t, "No phone found", cellValue(t, path, "B3"))
}

func TestOpenEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
