package report

import "strings"

// formatField quotes a CSV field when it contains a comma, double quote, or
// newline, doubling internal quotes. Every persisted field goes through
// this, error messages included.
func formatField(value string) string {
	if !strings.ContainsAny(value, ",\"\n\r") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func formatRow(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = formatField(f)
	}
	return strings.Join(quoted, ",") + "\n"
}
