package scan

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
)

// parseActivityLog parses the output of GetActivityLog into commit records.
// Each record carries the paths it touched and the summed numstat churn.
func parseActivityLog(out []byte) []schema.LocalCommitRecord {
	var records []schema.LocalCommitRecord
	var current *schema.LocalCommitRecord

	for l := range strings.SplitSeq(string(out), "\n") {
		l = strings.Trim(l, " \t\r\n'")

		if strings.HasPrefix(l, contract.CommitHeaderPrefix) {
			rec, ok := parseCommitHeader(l)
			if !ok {
				current = nil
				continue
			}
			records = append(records, rec)
			current = &records[len(records)-1]
			continue
		}
		if l == "" || current == nil {
			continue
		}

		path, add, del, ok := parseNumstatLine(l)
		if !ok {
			continue
		}
		current.Additions += add
		current.Deletions += del
		if path != "" {
			current.Files = append(current.Files, path)
		}
	}
	return records
}

// parseCommitHeader reads a "--hash|author|email|date|subject" line.
func parseCommitHeader(line string) (schema.LocalCommitRecord, bool) {
	if !strings.HasPrefix(line, contract.CommitHeaderPrefix) {
		return schema.LocalCommitRecord{}, false
	}
	parts := strings.SplitN(line[len(contract.CommitHeaderPrefix):], "|", 5)
	if len(parts) < 4 || parts[0] == "" {
		return schema.LocalCommitRecord{}, false
	}
	date, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return schema.LocalCommitRecord{}, false
	}
	rec := schema.LocalCommitRecord{
		Hash:   parts[0],
		Author: strings.TrimSpace(parts[1]),
		Email:  strings.TrimSpace(parts[2]),
		Date:   date.UTC(),
	}
	if len(parts) == 5 {
		rec.Subject = strings.TrimSpace(parts[4])
	}
	return rec, true
}

// parseNumstatLine parses "added<TAB>deleted<TAB>path". Renames resolve to
// the new path.
func parseNumstatLine(line string) (string, int, int, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) < 3 {
		return "", 0, 0, false
	}
	add := parseChurnValue(parts[0])
	del := parseChurnValue(parts[1])

	path := parts[2]
	if strings.Contains(path, " => ") {
		_, path = parseRenamePath(path)
	}
	return path, add, del, true
}

// parseChurnValue converts a churn string to int, handling "-" as 0.
func parseChurnValue(s string) int {
	if s == "-" {
		return 0
	}
	if val, err := strconv.Atoi(s); err == nil && val >= 0 {
		return val
	}
	return 0
}

// parseRenamePath extracts old and new paths from a rename string.
func parseRenamePath(path string) (string, string) {
	if !strings.Contains(path, "{") {
		// Simple format: "old => new"
		parts := strings.SplitN(path, " => ", 2)
		if len(parts) == 2 {
			return parts[0], parts[1]
		}
		return "", ""
	}

	braceStart := strings.Index(path, "{")
	braceEnd := strings.Index(path, "}")
	if braceStart == -1 || braceEnd == -1 || braceStart >= braceEnd {
		return "", ""
	}

	// Braced format: prefix{old => new}suffix
	prefix := path[:braceStart]
	renamePart := path[braceStart+1 : braceEnd]
	suffix := path[braceEnd+1:]

	renameParts := strings.SplitN(renamePart, " => ", 2)
	if len(renameParts) != 2 {
		return "", ""
	}
	return joinRename(prefix, renameParts[0], suffix), joinRename(prefix, renameParts[1], suffix)
}

// joinRename rebuilds one side of a braced rename. An empty side such as
// "{ => dir}/f.go" must not leave a double slash behind.
func joinRename(prefix, mid, suffix string) string {
	if mid == "" && strings.HasSuffix(prefix, "/") && strings.HasPrefix(suffix, "/") {
		return prefix + suffix[1:]
	}
	return prefix + mid + suffix
}

// commitMessage is one record of GetCommitMessages output.
type commitMessage struct {
	Hash   string
	Author string
	Email  string
	Body   string
}

// parseCommitMessages splits the unit/record separated message log.
func parseCommitMessages(out []byte) map[string]commitMessage {
	messages := make(map[string]commitMessage)
	for record := range strings.SplitSeq(string(out), "\x1e") {
		if strings.TrimSpace(record) == "" {
			continue
		}
		parts := strings.SplitN(record, "\x1f", 4)
		if len(parts) < 4 {
			continue
		}
		hash := strings.TrimSpace(parts[0])
		if hash == "" {
			continue
		}
		messages[hash] = commitMessage{
			Hash:   hash,
			Author: strings.TrimSpace(parts[1]),
			Email:  strings.TrimSpace(parts[2]),
			Body:   parts[3],
		}
	}
	return messages
}

// parseLastCommit reads the "hash|author|date" output of GetLastCommitForPath.
func parseLastCommit(out []byte) (hash, author string, when time.Time, ok bool) {
	line := strings.TrimSpace(string(out))
	if line == "" {
		return "", "", time.Time{}, false
	}
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return "", "", time.Time{}, false
	}
	return parts[0], parts[1], t.UTC(), true
}
