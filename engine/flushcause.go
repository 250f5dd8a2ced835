package engine

import (
	"regexp"
	"strings"
)

// flushCausePattern extracts the quoted instruction text from a misprediction
// or control-hazard explanation.
var flushCausePattern = regexp.MustCompile(
	`(?:Misprediction on branch|Control hazard resolved by stalling on branch) ` +
		`"([^"]+)"`)

// inferFlushCause scans the explanation log backward for the most recent
// entry that caused a flush and extracts the instruction it names. The match
// is best effort: if nothing matches, the cause degrades to an unknown
// instruction rather than an error.
func inferFlushCause(explanations []string) string {
	for i := len(explanations) - 1; i >= 0; i-- {
		entry := explanations[i]

		if !strings.Contains(entry, "Misprediction") &&
			!strings.Contains(entry, "Control hazard resolved") {
			continue
		}

		match := flushCausePattern.FindStringSubmatch(entry)
		if match == nil {
			return "an unknown instruction"
		}

		return `branch "` + match[1] + `"`
	}

	return "an unknown instruction"
}
