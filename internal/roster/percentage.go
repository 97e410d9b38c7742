package roster

import "academix/internal/attendance"

// WithPercentages fills in each student's derived attendance
// percentage: present marks over the total number of sessions held (all
// unique date+label pairs in the record set). A roster with no sessions
// yet reads 100 rather than 0.
func WithPercentages(students []Student, records []attendance.Record) []Student {
	totalSessions := len(attendance.RecentSessions(records, 0))

	presentByStudent := make(map[string]int)
	for _, r := range records {
		if r.Status == attendance.StatusPresent {
			presentByStudent[r.StudentID]++
		}
	}

	out := make([]Student, len(students))
	copy(out, students)
	for i := range out {
		if totalSessions == 0 {
			out[i].AttendancePercentage = 100
			continue
		}
		pct := float64(presentByStudent[out[i].ID]) / float64(totalSessions) * 100
		out[i].AttendancePercentage = int(pct + 0.5)
	}
	return out
}

// Entries projects the roster into the minimal view the grouping
// engine's department breakdown consumes.
func Entries(students []Student) []attendance.RosterEntry {
	entries := make([]attendance.RosterEntry, len(students))
	for i, s := range students {
		entries[i] = attendance.RosterEntry{ID: s.ID, Department: s.Department}
	}
	return entries
}

// Departments lists the distinct departments present on the roster, in
// first-seen order.
func Departments(students []Student) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range students {
		if s.Department != "" && !seen[s.Department] {
			seen[s.Department] = true
			out = append(out, s.Department)
		}
	}
	return out
}
