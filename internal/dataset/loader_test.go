package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable_CSV(t *testing.T) {
	path := writeTempCSV(t, "School,Address,District,Status\nElm PS,\"123 Main St, Halifax, NS\",HRCE,recent\nOak PS,5 Oak Ave,AVRCE,\n")

	rows, err := LoadTable(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Elm PS", rows[0].School)
	assert.Equal(t, "123 Main St, Halifax, NS", rows[0].Address)
	assert.Equal(t, "HRCE", rows[0].Group)
	assert.Equal(t, "recent", rows[0].Status)
}

func TestLoadTable_MissingRequiredColumnIsFatal(t *testing.T) {
	path := writeTempCSV(t, "Name,Street\nElm PS,123 Main St\n")

	_, err := LoadTable(context.Background(), path, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "School")
}

func TestLoadTable_EmptyInputIsFatal(t *testing.T) {
	path := writeTempCSV(t, "School,Address\n")
	_, err := LoadTable(context.Background(), path, LoadOptions{})
	assert.Error(t, err)
}

func TestLoadTable_SkipsBlankRows(t *testing.T) {
	path := writeTempCSV(t, "School,Address\nElm PS,123 Main St\n,\n , \n")
	rows, err := LoadTable(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoadTable_GroupCandidateOrder(t *testing.T) {
	// "Board" outranks "District" in the candidate list.
	path := writeTempCSV(t, "School,Address,District,Board\nElm PS,123 Main St,D1,B1\n")
	rows, err := LoadTable(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "B1", rows[0].Group)
}

func TestLoadTable_ExplicitDistrictColumn(t *testing.T) {
	path := writeTempCSV(t, "School,Address,Region,Board\nElm PS,123 Main St,R1,B1\n")
	rows, err := LoadTable(context.Background(), path, LoadOptions{DistrictCol: "Region"})
	require.NoError(t, err)
	assert.Equal(t, "R1", rows[0].Group)
}

func TestLoadTable_UnsupportedExtension(t *testing.T) {
	_, err := LoadTable(context.Background(), "input.txt", LoadOptions{})
	assert.Error(t, err)
}

func writeTempWorkbook(t *testing.T) string {
	t.Helper()
	f := xlsx.NewFile()

	addSheet := func(name string, rows [][]string) {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range rows {
			row := sheet.AddRow()
			for _, c := range cells {
				row.AddCell().SetString(c)
			}
		}
	}

	addSheet("HRCE", [][]string{
		{"School", "Address"},
		{"Elm PS", "123 Main St, Halifax, NS"},
	})
	addSheet("AVRCE", [][]string{
		{"School", "Address"},
		{"Oak PS", "5 Oak Ave, Wolfville, NS"},
	})

	path := filepath.Join(t.TempDir(), "schools.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadTable_WorkbookSheetNameBecomesGroup(t *testing.T) {
	path := writeTempWorkbook(t)

	rows, err := LoadTable(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Elm PS", rows[0].School)
	assert.Equal(t, "HRCE", rows[0].Group)
	assert.Equal(t, "Oak PS", rows[1].School)
	assert.Equal(t, "AVRCE", rows[1].Group)
}
