package canon

import (
	"strings"
)

// corpSuffixes are the generic corporate suffixes that, alone, do not
// constitute a usable business name.
var corpSuffixes = map[string]bool{
	"llc": true, "inc": true, "corp": true, "co": true, "ltd": true,
	"llp": true, "pllc": true, "pc": true, "pa": true,
}

// CleanName collapses whitespace and rejects names that are solely a
// corporate suffix or shorter than two characters. An empty string return
// means the name should be treated as absent by the caller.
func CleanName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	if len(collapsed) < 2 {
		return ""
	}

	stripped := strings.Trim(collapsed, ".,")
	bare := strings.ToLower(strings.Trim(stripped, "., "))
	if corpSuffixes[bare] {
		return ""
	}

	return collapsed
}
