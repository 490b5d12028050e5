package postgres

import (
	"reflect"
	"sync"
)

// columnCache maps a struct type to its db-tagged field indices.
var columnCache sync.Map // map[reflect.Type][]column

type column struct {
	index []int
	name  string
}

// Columns returns the db tag names of T in declaration order.
// Fields tagged "-" or untagged are skipped; embedded structs are flattened.
//
// Usage:
//
//	cols := Columns[party.Party]()
//	// ["id", "name", "party_type", ...]
func Columns[T any]() []string {
	var zero T
	meta := columnsOf(reflect.TypeOf(zero))
	names := make([]string, len(meta))
	for i, c := range meta {
		names[i] = c.name
	}
	return names
}

// Values returns the field values of v for the given column names, in order.
// Unknown columns yield nil.
func Values(v any, cols []string) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	byName := make(map[string][]int, len(cols))
	for _, c := range columnsOf(rv.Type()) {
		byName[c.name] = c.index
	}

	out := make([]any, len(cols))
	for i, name := range cols {
		if idx, ok := byName[name]; ok {
			out[i] = rv.FieldByIndex(idx).Interface()
		}
	}
	return out
}

// StructToMap converts a struct to a column map using "db" tags.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := columnsOf(rv.Type())
	res := make(map[string]any, len(meta))
	for _, c := range meta {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}

func columnsOf(t reflect.Type) []column {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	columnCache.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(field.Type, index)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{index: index, name: tag})
	}
	return cols
}
