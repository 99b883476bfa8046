// Package template implements the campaign message renderer: `{placeholder}`
// substitution against a flat field map. Placeholders without a matching field
// are left verbatim so a typo in a template never fails a send.
package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Render replaces every `{key}` occurrence in tpl with the stringified field
// value. All occurrences are replaced, matching is case-sensitive, and the
// output is deterministic for the same inputs: replacement pairs are built in
// sorted key order and applied in a single pass, so a field value that happens
// to contain a placeholder is never re-expanded.
func Render(tpl string, fields map[string]any) string {
	if tpl == "" || len(fields) == 0 {
		return tpl
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(fields)*2)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", Stringify(fields[key]))
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Stringify converts a field value to its text form. Nested structures
// (maps, slices) become canonical JSON; encoding/json sorts map keys, which
// keeps the output stable across runs.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
