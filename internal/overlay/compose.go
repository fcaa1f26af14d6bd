package overlay

import (
	"fmt"
	"strings"
)

// unknownName stands in for an enumerated value outside its name table.
const unknownName = "?"

// Compose fills format with values. A value whose entry in names is
// non-nil is replaced by the name at its index; nil entries, and entries
// missing because names is shorter than values, leave the number as is.
func Compose(format string, values []float64, names [][]string) string {
	if format == "" {
		return ""
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
		if i < len(names) && names[i] != nil {
			args[i] = nameOf(names[i], v)
		}
	}
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

func nameOf(table []string, v float64) string {
	i := int(v)
	if v < 0 || i >= len(table) {
		return unknownName
	}
	return table[i]
}
