package query_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jrsteele09/go-entra-query/query"
	"github.com/stretchr/testify/require"
)

func row(pairs ...string) query.Row {
	var r query.Row
	for i := 0; i+1 < len(pairs); i += 2 {
		r = append(r, query.Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return r
}

// countDelimiters counts pipes that are not escaped cell content.
func countDelimiters(line string) int {
	return strings.Count(line, "|") - strings.Count(line, `\|`)
}

func TestFormatAsTable_Empty(t *testing.T) {
	require.Equal(t, "No data available.", query.FormatAsTable(nil))
	require.Equal(t, query.NoDataMessage, query.FormatAsTable([]query.Row{}))
}

// TestFormatAsTable_Example tests the two-row, two-column example
func TestFormatAsTable_Example(t *testing.T) {
	rows := []query.Row{
		row("a", "1", "b", "x"),
		row("a", "2", "b", "y"),
	}

	require.Equal(t, "| a | b |\n| 1 | x |\n| 2 | y |", query.FormatAsTable(rows))
}

// TestFormatAsTable_Shape tests rows+1 lines with N+1 delimiters each for N columns
func TestFormatAsTable_Shape(t *testing.T) {
	for columns := 1; columns <= 5; columns++ {
		for rowCount := 1; rowCount <= 4; rowCount++ {
			t.Run(fmt.Sprintf("%dx%d", rowCount, columns), func(t *testing.T) {
				rows := make([]query.Row, rowCount)
				for r := range rows {
					for c := 0; c < columns; c++ {
						rows[r] = append(rows[r], query.Field{
							Name:  fmt.Sprintf("Table[Col%d]", c),
							Value: fmt.Sprintf("line one\nline | two %d", r),
						})
					}
				}

				lines := strings.Split(query.FormatAsTable(rows), "\n")
				require.Len(t, lines, rowCount+1)
				for _, line := range lines {
					require.Equal(t, columns+1, countDelimiters(line), line)
				}
			})
		}
	}
}

// TestFormatAsTable_ReadsCellsByPosition tests that repeated column names keep every value
func TestFormatAsTable_ReadsCellsByPosition(t *testing.T) {
	rows := []query.Row{
		row("x", "1", "x", "2"),
		row("x", "3"),
	}

	require.Equal(t, "| x | x |\n| 1 | 2 |\n| 3 |  |", query.FormatAsTable(rows))
}

func TestParseThenFormat(t *testing.T) {
	result, err := query.ParseResponse([]byte(`{"results":[{"tables":[{"rows":[{"name":"Contoso","total":10},{"name":"Fab|rikam","total":null}]}]}]}`))
	require.NoError(t, err)

	table := query.FormatAsTable(result.Rows)
	require.Equal(t, "| name | total |\n| Contoso | 10 |\n| Fab\\|rikam |  |", table)
	for _, line := range strings.Split(table, "\n") {
		require.Equal(t, 3, countDelimiters(line))
	}
}
