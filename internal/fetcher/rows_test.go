package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestParseContacts(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Clientes": {
			{"Nome", "Telefone", "Origem"},
			{"João Silva", "(11) 99999-9999", "indicacao"},
			{"Maria Souza", "11988887777", ""},
			{"", "", ""},
		},
	})

	rows, err := ParseContacts(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank rows are dropped")

	assert.Equal(t, "João Silva", rows[0].Name)
	assert.Equal(t, "(11) 99999-9999", rows[0].Phone)
	assert.Equal(t, "Clientes", rows[0].Sheet)
	assert.Equal(t, map[string]string{"Origem": "indicacao"}, rows[0].Additional)

	assert.Equal(t, "Maria Souza", rows[1].Name)
	assert.Nil(t, rows[1].Additional)
}

func TestParseContacts_PartialRowsKept(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Clientes": {
			{"Nome", "Telefone"},
			{"Sem Telefone", ""},
			{"", "11999990000"},
		},
	})

	rows, err := ParseContacts(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2, "partial rows go through; normalization decides")
}

func TestParseClientData(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Relatorio": {
			{"Data", "ID", "Cliente", "Telefone", "Visitas"},
			{"2026-08-01", "c1", "Ana Souza", "11911112222", "3"},
			{"2026-08-01", "c2", "Bruno Lima", "11933334444", "1"},
			{"2026-08-02", "c1", "Ana Souza", "11911112222", "5"},
		},
	})

	rows, err := ParseClientData(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows["2026-08-01"], 2)
	require.Len(t, rows["2026-08-02"], 1)

	ana := rows["2026-08-01"]["c1"]
	assert.Equal(t, "Ana Souza", ana.ClientName)
	assert.Equal(t, "Relatorio", ana.Sheet)
	assert.Equal(t, map[string]string{"Visitas": "3"}, ana.Data)
}

func TestParseClientData_DuplicatePairLastWins(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Relatorio": {
			{"Data", "ID", "Cliente", "Telefone", "Visitas"},
			{"2026-08-01", "c1", "Ana Souza", "11911112222", "3"},
			{"2026-08-01", "c1", "Ana Souza", "11911112222", "9"},
		},
	})

	rows, err := ParseClientData(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows["2026-08-01"], 1)
	assert.Equal(t, "9", rows["2026-08-01"]["c1"].Data["Visitas"])
}

func TestParseClientData_SkipsRowsMissingKeys(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Relatorio": {
			{"Data", "ID", "Cliente", "Telefone"},
			{"", "c1", "Ana", "1"},
			{"2026-08-01", "", "Bruno", "2"},
		},
	})

	rows, err := ParseClientData(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadSheet_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Only": {{"a"}}})

	_, err := ParseContacts(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadSheet_BadPath(t *testing.T) {
	_, err := ParseContacts(filepath.Join(t.TempDir(), "missing.xlsx"), XLSXOptions{})
	require.Error(t, err)
}
