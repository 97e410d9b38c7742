package attendance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status is the closed set of per-student attendance states.
type Status string

const (
	StatusPresent   Status = "Present"
	StatusAbsent    Status = "Absent"
	StatusOD        Status = "OD"
	StatusNotMarked Status = "Not Marked"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusOD, StatusNotMarked:
		return true
	}
	return false
}

// Sentinel bucket labels for records with missing grouping keys.
// Malformed rows are surfaced under these keys, never dropped.
const (
	UnknownDate = "Unknown Date"
	UnknownTime = "Unknown Time"
)

// Record is one row per (student, session).
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	SessionID string    `json:"session_id"`
	Date      string    `json:"date"`
	Label     string    `json:"timestamp"`
	StudentID string    `json:"student_id"`
	Status    Status    `json:"status"`
	Subject   string    `json:"subject"`
	Class     string    `json:"class"`
	Remark    string    `json:"remark,omitempty"`
	// SessionNote is the session-wide note, repeated on every record of
	// the batch. It is a real column, not a tag smuggled into Remark.
	SessionNote string    `json:"session_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionKey addresses a session. Sessions, not rows, are the unit the
// user edits and deletes; the key is (date, timestamp label).
type SessionKey struct {
	Date  string `json:"date"`
	Label string `json:"timestamp"`
}

// SessionMetadata carries the per-session fields that apply to every
// record in the batch. Periods and the global note are explicit fields
// here rather than being encoded inside label or remark strings.
type SessionMetadata struct {
	Periods    []int  `json:"periods"`
	Label      string `json:"timestamp"`
	Subject    string `json:"subject"`
	Class      string `json:"class"`
	GlobalNote string `json:"global_note,omitempty"`
}

// Mark is one student's desired state within a session commit or edit.
type Mark struct {
	StudentID string `json:"student_id"`
	Status    Status `json:"status"`
	Remark    string `json:"remark,omitempty"`
}

// FormatLabel renders the session label, e.g. "P1,2,3 - 09:15".
// Periods are sorted and deduplicated; at is truncated to the minute.
func FormatLabel(periods []int, at time.Time) string {
	seen := map[int]bool{}
	var ps []int
	for _, p := range periods {
		if !seen[p] {
			seen[p] = true
			ps = append(ps, p)
		}
	}
	sort.Ints(ps)
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("P%s - %s", strings.Join(parts, ","), at.Format("15:04"))
}

// ParseLabel extracts the period list and clock time from a session
// label. Labels from older data may omit the clock suffix; in that case
// clock is empty and only periods are returned.
func ParseLabel(label string) (periods []int, clock string, err error) {
	rest, ok := strings.CutPrefix(label, "P")
	if !ok {
		return nil, "", fmt.Errorf("label %q: missing P prefix", label)
	}
	list := rest
	if i := strings.Index(rest, " - "); i >= 0 {
		list, clock = rest[:i], rest[i+3:]
	}
	for _, part := range strings.Split(list, ",") {
		n, perr := strconv.Atoi(strings.TrimSpace(part))
		if perr != nil {
			return nil, "", fmt.Errorf("label %q: bad period %q", label, part)
		}
		periods = append(periods, n)
	}
	return periods, clock, nil
}
