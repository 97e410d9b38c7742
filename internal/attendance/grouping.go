package attendance

import "sort"

// The grouping engine derives browsable structure and aggregates from a
// flat record list. Every function here is pure: no mutation of the
// input slice, empty structures on empty input, no errors.

// GroupByFolder partitions records by calendar date. Records with an
// empty date land under UnknownDate so malformed data stays visible.
func GroupByFolder(records []Record) map[string][]Record {
	folders := make(map[string][]Record)
	for _, r := range records {
		key := r.Date
		if key == "" {
			key = UnknownDate
		}
		folders[key] = append(folders[key], r)
	}
	return folders
}

// GroupBySession partitions one folder's records by timestamp label.
// Records with an empty label land under UnknownTime.
func GroupBySession(folderRecords []Record) map[string][]Record {
	sessions := make(map[string][]Record)
	for _, r := range folderRecords {
		key := r.Label
		if key == "" {
			key = UnknownTime
		}
		sessions[key] = append(sessions[key], r)
	}
	return sessions
}

// LatestStatusPerStudent resolves each student's current status for the
// given date. Records are sorted by (date, label) ascending before the
// fold, so "latest" means most recent by session timestamp, with input
// order breaking ties between records of the same session.
func LatestStatusPerStudent(records []Record, date string) map[string]Status {
	var day []Record
	for _, r := range records {
		if r.Date == date {
			day = append(day, r)
		}
	}
	sort.SliceStable(day, func(i, j int) bool {
		if day[i].Date != day[j].Date {
			return day[i].Date < day[j].Date
		}
		return day[i].Label < day[j].Label
	})
	latest := make(map[string]Status)
	for _, r := range day {
		latest[r.StudentID] = r.Status
	}
	return latest
}

// RecentSessions returns up to limit sessions, newest first, one
// representative record per (date, label) pair. Lexicographic string
// comparison is fine: both fields use fixed-width zero-padded forms.
func RecentSessions(records []Record, limit int) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Label > sorted[j].Label
	})

	seen := make(map[SessionKey]bool)
	var out []Record
	for _, r := range sorted {
		key := SessionKey{Date: r.Date, Label: r.Label}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// DeptStats summarises one department's marks for a day.
type DeptStats struct {
	Name       string `json:"name"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	OD         int    `json:"od"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// RosterEntry is the minimal student view the grouping engine needs.
type RosterEntry struct {
	ID         string
	Department string
}

// DepartmentBreakdown computes per-department attendance for a date.
// The percentage denominator is the number of students with any mark
// that day, not the roster size; departments with partial marking are
// not penalised. Percentage is 0 when nothing is marked.
func DepartmentBreakdown(roster []RosterEntry, records []Record, date string, departments []string) []DeptStats {
	latest := LatestStatusPerStudent(records, date)

	byDept := make(map[string][]RosterEntry)
	for _, s := range roster {
		byDept[s.Department] = append(byDept[s.Department], s)
	}

	out := make([]DeptStats, 0, len(departments))
	for _, dept := range departments {
		stats := DeptStats{Name: dept, Total: len(byDept[dept])}
		for _, s := range byDept[dept] {
			switch latest[s.ID] {
			case StatusPresent:
				stats.Present++
			case StatusAbsent:
				stats.Absent++
			case StatusOD:
				stats.OD++
			}
		}
		marked := stats.Present + stats.Absent + stats.OD
		if marked > 0 {
			stats.Percentage = int(float64(stats.Present)/float64(marked)*100 + 0.5)
		}
		out = append(out, stats)
	}
	return out
}

// DayTotals aggregates the latest statuses for a date across all
// departments, for the dashboard headline numbers.
type DayTotals struct {
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	OD         int `json:"od"`
	Percentage int `json:"percentage"`
}

// Totals counts present/absent/OD for the date from the latest-status
// fold. Percentage is present over all marked, 0 when nothing is marked.
func Totals(records []Record, date string) DayTotals {
	var t DayTotals
	for _, status := range LatestStatusPerStudent(records, date) {
		switch status {
		case StatusPresent:
			t.Present++
		case StatusAbsent:
			t.Absent++
		case StatusOD:
			t.OD++
		}
	}
	marked := t.Present + t.Absent + t.OD
	if marked > 0 {
		t.Percentage = int(float64(t.Present)/float64(marked)*100 + 0.5)
	}
	return t
}
