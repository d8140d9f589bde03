package postprocess

import "github.com/scanwatch/dispatch-engine/internal/taxonomy"

// matchCallType wraps taxonomy.Match, the shared keyword table, so the
// post-processor and the classifier (internal/classify) agree on
// disambiguation without duplicating the table.
func matchCallType(lowerText string) (string, bool) {
	return taxonomy.Match(lowerText)
}
