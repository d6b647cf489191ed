package storage

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeNameChars = regexp.MustCompile(`[&/\\#,+()$~%'":*?<>{}@\s]`)

// SanitizeName replaces characters that are awkward in object keys and URLs with '_'.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
}

// TimestampedName inserts the unix time in milliseconds before the extension:
// "photo.png" becomes "photo_1700000000000.png". Names without an extension get the
// suffix appended.
func TimestampedName(name string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name + "_" + ts
	}
	return name[:dot] + "_" + ts + name[dot:]
}
