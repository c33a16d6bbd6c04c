package match

import (
	"strings"
)

const (
	unknownTime = "unknown-time"
	unknownTeam = "unknown"
)

var unsafeFilenameChars = strings.NewReplacer(
	`\`, "-",
	"/", "-",
	":", "-",
	"*", "-",
	"?", "-",
	`"`, "-",
	"<", "-",
	">", "-",
	"|", "-",
)

// FileName returns the document name of a record:
// <yyyymmdd-hhmm>-<id>-<home>VS<away>.json.
func FileName(r Record) string {
	home := SafeFilename(r.HomeTeam.Name)
	away := SafeFilename(r.AwayTeam.Name)
	return FormatTimeForFilename(r.MatchTime) + "-" + SafeFilename(r.ID) + "-" + home + "VS" + away + ".json"
}

// FormatTimeForFilename keeps the digits of a "2025-05-15 01:00" style time
// as "20250515-0100".
func FormatTimeForFilename(matchTime string) string {
	var digits strings.Builder
	for _, ch := range matchTime {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	d := digits.String()
	if len(d) < 8 {
		return unknownTime
	}
	if len(d) >= 12 {
		return d[:8] + "-" + d[8:12]
	}
	return d[:8]
}

// SafeFilename replaces characters that are not allowed in file names.
func SafeFilename(value string) string {
	if strings.TrimSpace(value) == "" {
		return unknownTeam
	}
	return strings.TrimSpace(unsafeFilenameChars.Replace(value))
}
