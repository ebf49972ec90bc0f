package query

import "strings"

// NoDataMessage is what FormatAsTable returns for an empty result.
const NoDataMessage = "No data available."

// Cell text is kept on one line, and a pipe inside a cell is escaped so it
// cannot be read as a column delimiter.
var cellReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "|", `\|`)

// FormatAsTable renders rows as a pipe-delimited table: a header line built
// from the first row's columns, then one line per row. Rows must share the
// first row's columns in the same order, as ParseResponse guarantees.
func FormatAsTable(rows []Row) string {
	if len(rows) == 0 {
		return NoDataMessage
	}

	headers := rows[0].Columns()
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, tableLine(headers))

	values := make([]string, len(headers))
	for _, row := range rows {
		for i := range headers {
			values[i] = ""
			if i < len(row) {
				values[i] = row[i].Value
			}
		}
		lines = append(lines, tableLine(values))
	}
	return strings.Join(lines, "\n")
}

func tableLine(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = cellReplacer.Replace(c)
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}
