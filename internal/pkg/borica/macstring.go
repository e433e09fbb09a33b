package borica

import (
	"strconv"
	"strings"
)

const placeholder = "-"

// BuildSigningString concatenates the listed fields as LEN+VALUE with no separators.
// The RFU slot and any absent field are written as a single "-".
func BuildSigningString(src FieldSource, order []FieldName) string {
	var b strings.Builder
	for _, name := range order {
		if name == FieldRFU {
			b.WriteString(placeholder)
			continue
		}
		v, ok := src.Lookup(name)
		if !ok {
			b.WriteString(placeholder)
			continue
		}
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteString(v)
	}
	return b.String()
}
