package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalExtra converts SymbolExtra to JSON text for storage. The zero value
// is stored as an empty string.
func marshalExtra(e SymbolExtra) string {
	if e.isZero() {
		return ""
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// unmarshalExtra converts JSON text back to SymbolExtra.
func unmarshalExtra(s string) SymbolExtra {
	var e SymbolExtra
	if s == "" || s == "null" {
		return e
	}
	_ = json.Unmarshal([]byte(s), &e)
	return e
}
