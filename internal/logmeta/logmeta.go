// Package logmeta decodes the fixed metadata prefix of node logfile lines.
package logmeta

import (
	"regexp"
	"time"
)

// CategoryError is the category that always counts towards the error metric.
const CategoryError = "ERROR"

// linePattern captures the fixed prefix of a node log line: a leading
// category word, an RFC3339 timestamp, a bracketed source tag, then the
// remainder of the message.
var linePattern = regexp.MustCompile(`^\s*(?P<category>[A-Z]{4,6}) (?P<time>\S+) \[(?P<source>[^\]]*)\](?P<message>.*)$`)

// Metadata holds the decoded fields of one logfile line. It is transient
// state, rebuilt per line and never persisted on its own.
type Metadata struct {
	Category    string    `json:"category"`     // first word: INFO, WARN, ERROR...
	MessageTime time.Time `json:"message_time"` // timestamp embedded in the line
	SystemTime  time.Time `json:"system_time"`  // wall clock when the line was decoded
	Source      string    `json:"source"`       // bracketed source tag
	Message     string    `json:"message"`
}

// Decode parses one raw logfile line. It returns nil when the line carries
// no metadata. A timestamp that fails to parse fails the whole decode; there
// is no partial metadata.
func Decode(line string) *Metadata {
	if line == "" {
		return nil
	}

	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, m[2])
	if err != nil {
		return nil
	}

	return &Metadata{
		Category:    m[1],
		MessageTime: ts.UTC(),
		SystemTime:  time.Now().UTC(),
		Source:      m[3],
		Message:     m[4],
	}
}
