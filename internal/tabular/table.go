package tabular

import (
	"fmt"
	"sort"
)

// Table — прямоугольный набор данных: упорядоченные колонки и строки-записи.
type Table struct {
	Columns []string
	Rows    []map[string]interface{}
}

// ColumnStats — сводка по колонке для превью.
type ColumnStats struct {
	Name        string `json:"name"`
	DType       string `json:"dtype"`
	NullCount   int    `json:"null_count"`
	UniqueCount int    `json:"unique_count"`
}

// Stats считает тип, количество пустых и уникальных значений по каждой колонке.
func (t *Table) Stats() []ColumnStats {
	stats := make([]ColumnStats, 0, len(t.Columns))
	for _, col := range t.Columns {
		s := ColumnStats{Name: col, DType: "string"}
		unique := make(map[string]bool)
		var hasInt, hasFloat, hasBool, hasString bool

		for _, row := range t.Rows {
			v, ok := row[col]
			if !ok || v == nil {
				s.NullCount++
				continue
			}
			unique[fmt.Sprint(v)] = true
			switch v.(type) {
			case int64:
				hasInt = true
			case float64:
				hasFloat = true
			case bool:
				hasBool = true
			default:
				hasString = true
			}
		}

		switch {
		case hasString:
			s.DType = "string"
		case hasBool && !hasInt && !hasFloat:
			s.DType = "bool"
		case hasFloat:
			s.DType = "float"
		case hasInt:
			s.DType = "int"
		}
		s.UniqueCount = len(unique)
		stats = append(stats, s)
	}
	return stats
}

// Head возвращает первые n строк.
func (t *Table) Head(n int) []map[string]interface{} {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// columnsFromRows восстанавливает упорядоченный список колонок,
// когда формат сам порядок не фиксирует.
func columnsFromRows(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	return columns
}
