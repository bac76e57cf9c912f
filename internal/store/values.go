package store

import (
	"fmt"
	"strconv"
	"time"

	"tabjobs/internal/table"
)

// SQLValue converts a cell to a driver argument. Missing cells and
// sentinels in numeric columns become NULL; a sentinel label cannot be
// stored in a numeric column and is never written as zero.
func SQLValue(v table.Value) any {
	if v.IsMissing() {
		return nil
	}
	if v.IsSentinel() {
		if v.Kind().Numeric() {
			return nil
		}
		return v.String()
	}
	switch v.Kind() {
	case table.Int:
		n, _ := v.Int()
		return n
	case table.Float:
		f, _ := v.Float()
		return f
	}
	return v.String()
}

// RowArgs returns the driver arguments of row i, prefixed with the row index.
func RowArgs(cols []table.Column, i int) []any {
	args := make([]any, 0, len(cols)+1)
	args = append(args, int64(i))
	for _, c := range cols {
		args = append(args, SQLValue(c.Values[i]))
	}
	return args
}

// CellOf converts a scanned driver value back to raw text.
func CellOf(v any) table.Cell {
	switch x := v.(type) {
	case nil:
		return table.Null()
	case string:
		return table.Text(x)
	case []byte:
		return table.Text(string(x))
	case int64:
		return table.Text(strconv.FormatInt(x, 10))
	case int32:
		return table.Text(strconv.FormatInt(int64(x), 10))
	case float64:
		return table.Text(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return table.Text(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case bool:
		return table.Text(strconv.FormatBool(x))
	case time.Time:
		return table.Text(table.FormatDate(x))
	}
	return table.Text(fmt.Sprint(v))
}
