package roster_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bmoreira/tesouraria/internal/roster"
)

func TestParse_CSVWithHeader(t *testing.T) {
	input := "Nome;Responsável\nAna Souza;Carla Souza\nBruno Lima;\n"

	rows, err := roster.Parse(strings.NewReader(input), "turma.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Ana Souza", rows[0].Name)
	assert.Equal(t, "Carla Souza", rows[0].Guardian)

	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "Bruno Lima", rows[1].Name)
	assert.Empty(t, rows[1].Guardian)
}

func TestParse_CSVWithoutHeader(t *testing.T) {
	input := "Ana Souza;Carla Souza\nBruno Lima;Pedro Lima\n"

	rows, err := roster.Parse(strings.NewReader(input), "turma.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "Ana Souza", rows[0].Name)
}

func TestParse_CSVLatin1(t *testing.T) {
	// Windows-1252 export: "João Conceição;Maria\n" (ã=0xE3, ç=0xE7).
	input := []byte{
		'J', 'o', 0xE3, 'o', ' ',
		'C', 'o', 'n', 'c', 'e', 'i', 0xE7, 0xE3, 'o', ';',
		'M', 'a', 'r', 'i', 'a', '\n',
	}

	rows, err := roster.Parse(bytes.NewReader(input), "turma.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "João Conceição", rows[0].Name)
	assert.Equal(t, "Maria", rows[0].Guardian)
}

func TestParse_CSVKeepsBadRowsForLaterReporting(t *testing.T) {
	input := "Nome;Responsável\n;\nBruno Lima;\n"

	rows, err := roster.Parse(strings.NewReader(input), "turma.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// The empty row survives parsing so enrollment can report it by line.
	assert.Empty(t, rows[0].Name)
	assert.Equal(t, 2, rows[0].Line)
}

func TestParse_Xlsx(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)

	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"Nome", "Responsável"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"Ana Souza", "Carla Souza"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{"Bruno Lima"}))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	rows, err := roster.Parse(&buf, "turma.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Ana Souza", rows[0].Name)
	assert.Equal(t, "Carla Souza", rows[0].Guardian)
	assert.Equal(t, "Bruno Lima", rows[1].Name)
}

func TestParse_UnknownExtensionFallsBackToCSV(t *testing.T) {
	rows, err := roster.Parse(strings.NewReader("Ana Souza;\n"), "turma.txt")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Souza", rows[0].Name)
}
