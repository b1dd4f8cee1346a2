package aws

import (
	"strings"

	"github.com/dorkyrobot/cftp/internal/store"
)

// restoreStatus maps the x-amz-restore header of a HeadObject response to a
// store restore state, e.g.
//
//	ongoing-request="false", expiry-date="Fri, 23 Dec 2012 00:00:00 GMT"
//
// is a finished restore. Headers without an ongoing-request field map to "".
func restoreStatus(header string) string {
	for _, field := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok || name != "ongoing-request" {
			continue
		}
		switch strings.Trim(value, `"`) {
		case "true":
			return store.RestoreInProgress
		case "false":
			return store.RestoreAvailable
		}
	}
	return ""
}
