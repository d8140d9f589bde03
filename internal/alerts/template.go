package alerts

import (
	"strings"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// renderTemplate substitutes {callType}, {location}, {time}, and
// {transcript} placeholders against call (§4.J).
func renderTemplate(tmpl string, call *database.Call) string {
	location := ""
	if call.Location != nil {
		location = *call.Location
	}
	r := strings.NewReplacer(
		"{callType}", call.CallType,
		"{location}", location,
		"{time}", call.Timestamp.Format(time.RFC3339),
		"{transcript}", call.Transcript,
	)
	return r.Replace(tmpl)
}
