package azure

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/shopspring/decimal"
)

var costColumns = []string{"totalCost", "PreTaxCost", "Cost", "CostUSD"}

// table gives name-based access to the positional rows of a query result.
type table struct {
	columns map[string]int
	rows    [][]any
}

func newTable(result armcostmanagement.QueryResult) table {
	t := table{columns: make(map[string]int)}
	if result.Properties == nil {
		return t
	}
	for i, col := range result.Properties.Columns {
		if col != nil && col.Name != nil {
			t.columns[strings.ToLower(*col.Name)] = i
		}
	}
	t.rows = result.Properties.Rows
	return t
}

func (t table) index(names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := t.columns[strings.ToLower(name)]; ok {
			return i, true
		}
	}
	return 0, false
}

func (t table) costIndex() (int, error) {
	i, ok := t.index(costColumns...)
	if !ok {
		return 0, fmt.Errorf("no cost column in query result")
	}
	return i, nil
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case string:
		return decimal.NewFromString(val)
	default:
		return decimal.Zero, fmt.Errorf("unexpected cost value %v (%T)", v, v)
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// toDate decodes UsageDate cells: numeric yyyymmdd or an ISO timestamp.
func toDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case float64:
		return time.Parse("20060102", strconv.FormatInt(int64(val), 10))
	case int64:
		return time.Parse("20060102", strconv.FormatInt(val, 10))
	case int:
		return time.Parse("20060102", strconv.Itoa(val))
	case string:
		if len(val) == 8 {
			return time.Parse("20060102", val)
		}
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
		return time.Parse("2006-01-02T15:04:05", val)
	default:
		return time.Time{}, fmt.Errorf("unexpected date value %v (%T)", v, v)
	}
}
