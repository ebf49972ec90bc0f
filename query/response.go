package query

import (
	"fmt"
	"slices"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/tidwall/gjson"
)

// Field is one cell of a row. Value is the display text: strings as-is,
// numbers and booleans as their JSON literal, null as empty.
type Field struct {
	Name  string
	Value string
	Null  bool
}

// Row keeps the columns in the order the service returned them.
type Row []Field

// Columns returns the column names of the row.
func (r Row) Columns() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value of the named column.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Result is the single table an executeQueries call produced.
type Result struct {
	Rows []Row
}

// Columns returns the columns of the table, taken from the first row.
func (r *Result) Columns() []string {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0].Columns()
}

// ParseResponse reads results[0].tables[0].rows from an executeQueries
// response. gjson walks the objects in document order, which a map would not
// keep. Several results or tables, rows without columns or with a repeated
// column, and rows whose columns differ from the first row are rejected.
func ParseResponse(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not JSON", apperrors.ErrMalformedResponse)
	}

	results := gjson.GetBytes(body, "results")
	if !results.IsArray() || len(results.Array()) == 0 {
		return nil, fmt.Errorf("%w: missing results", apperrors.ErrMalformedResponse)
	}
	if n := len(results.Array()); n > 1 {
		return nil, fmt.Errorf("%w: %d results, expected 1", apperrors.ErrUnsupportedResult, n)
	}

	first := results.Array()[0]
	if queryErr := first.Get("error"); queryErr.Exists() {
		return nil, fmt.Errorf("%w: %s %s", apperrors.ErrQueryFailed,
			queryErr.Get("code").String(), queryErr.Get("message").String())
	}

	tables := first.Get("tables")
	if !tables.IsArray() || len(tables.Array()) == 0 {
		return nil, fmt.Errorf("%w: missing results[0].tables", apperrors.ErrMalformedResponse)
	}
	if n := len(tables.Array()); n > 1 {
		return nil, fmt.Errorf("%w: %d tables, expected 1", apperrors.ErrUnsupportedResult, n)
	}

	rows := tables.Array()[0].Get("rows")
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: missing results[0].tables[0].rows", apperrors.ErrMalformedResponse)
	}

	result := &Result{Rows: make([]Row, 0, len(rows.Array()))}
	var columns []string
	for i, raw := range rows.Array() {
		if !raw.IsObject() {
			return nil, fmt.Errorf("%w: row %d is not an object", apperrors.ErrMalformedResponse, i)
		}

		var row Row
		seen := make(map[string]bool)
		var duplicate string
		raw.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if seen[name] {
				duplicate = name
				return false
			}
			seen[name] = true
			row = append(row, Field{Name: name, Value: cellText(value), Null: value.Type == gjson.Null})
			return true
		})
		if duplicate != "" {
			return nil, fmt.Errorf("%w: row %d repeats column %q", apperrors.ErrUnsupportedResult, i, duplicate)
		}
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: row %d has no columns", apperrors.ErrUnsupportedResult, i)
		}

		if i == 0 {
			columns = row.Columns()
		} else if !slices.Equal(columns, row.Columns()) {
			return nil, fmt.Errorf("%w: row %d has columns %v, expected %v", apperrors.ErrUnsupportedResult, i, row.Columns(), columns)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

// serviceError extracts the service's error code and message from a failed
// response. Power BI puts the readable text under pbi.error when it has one.
func serviceError(statusCode int, body []byte) *apperrors.StatusError {
	statusErr := &apperrors.StatusError{StatusCode: statusCode}
	if !gjson.ValidBytes(body) {
		return statusErr
	}

	errBody := gjson.GetBytes(body, "error")
	statusErr.Code = errBody.Get("code").String()
	statusErr.Message = errBody.Get("message").String()
	if statusErr.Message == "" {
		statusErr.Message = errBody.Get(`pbi\.error.details.#(code=="DetailsMessage").detail.value`).String()
	}
	return statusErr
}
