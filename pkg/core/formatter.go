package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormatMetadata pretty-prints metadata as 2-space indented JSON. Values that
// cannot be encoded (channels, funcs, cyclic structures) are rendered with %v
// instead of failing the whole block.
func FormatMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err == nil {
		return string(data)
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		value, err := json.Marshal(metadata[key])
		if err != nil {
			value, _ = json.Marshal(fmt.Sprintf("%v", metadata[key]))
		}
		fmt.Fprintf(&b, "\n  %q: %s", key, value)
	}
	b.WriteString("\n}")
	return b.String()
}
