package attendance

import (
	"testing"
)

func rec(date, label, studentID string, status Status) Record {
	return Record{
		ID:        date + "/" + label + "/" + studentID,
		Date:      date,
		Label:     label,
		StudentID: studentID,
		Status:    status,
	}
}

func TestGroupByFolderPreservesRecords(t *testing.T) {
	records := []Record{
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P2 - 10:00", "alice", StatusAbsent),
		rec("2024-01-11", "P1 - 09:00", "bob", StatusPresent),
		rec("", "P1 - 09:00", "carol", StatusOD),
	}

	folders := GroupByFolder(records)

	total := 0
	seen := map[string]bool{}
	for _, bucket := range folders {
		for _, r := range bucket {
			total++
			seen[r.ID] = true
		}
	}
	if total != len(records) {
		t.Fatalf("flattened %d records, want %d", total, len(records))
	}
	for _, r := range records {
		if !seen[r.ID] {
			t.Errorf("record %s lost during grouping", r.ID)
		}
	}
	if len(folders[UnknownDate]) != 1 {
		t.Errorf("missing-date record not bucketed under %q", UnknownDate)
	}
}

func TestGroupBySessionKeys(t *testing.T) {
	folder := []Record{
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P1 - 09:00", "bob", StatusAbsent),
		rec("2024-01-10", "P2,3 - 11:30", "alice", StatusPresent),
		rec("2024-01-10", "", "dave", StatusPresent),
	}

	sessions := GroupBySession(folder)

	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	for label, bucket := range sessions {
		for _, r := range bucket {
			want := r.Label
			if want == "" {
				want = UnknownTime
			}
			if label != want {
				t.Errorf("record %s filed under %q, want %q", r.ID, label, want)
			}
		}
	}
	if len(sessions[UnknownTime]) != 1 {
		t.Errorf("missing-label record not bucketed under %q", UnknownTime)
	}
}

func TestLatestStatusPerStudent(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		date    string
		want    map[string]Status
	}{
		{
			name:    "empty input",
			records: nil,
			date:    "2024-01-10",
			want:    map[string]Status{},
		},
		{
			name: "single session",
			records: []Record{
				rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
				rec("2024-01-10", "P1 - 09:00", "bob", StatusAbsent),
			},
			date: "2024-01-10",
			want: map[string]Status{"alice": StatusPresent, "bob": StatusAbsent},
		},
		{
			name: "later session wins regardless of input order",
			records: []Record{
				rec("2024-01-10", "P5 - 14:00", "alice", StatusAbsent),
				rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
			},
			date: "2024-01-10",
			want: map[string]Status{"alice": StatusAbsent},
		},
		{
			name: "other dates are ignored",
			records: []Record{
				rec("2024-01-09", "P1 - 09:00", "alice", StatusAbsent),
				rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
			},
			date: "2024-01-10",
			want: map[string]Status{"alice": StatusPresent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatestStatusPerStudent(tt.records, tt.date)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for id, status := range tt.want {
				if got[id] != status {
					t.Errorf("student %s: got %q, want %q", id, got[id], status)
				}
			}
		})
	}
}

func TestLatestStatusPerStudentIdempotent(t *testing.T) {
	records := []Record{
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P2 - 10:00", "alice", StatusAbsent),
		rec("2024-01-10", "P2 - 10:00", "bob", StatusOD),
	}

	first := LatestStatusPerStudent(records, "2024-01-10")
	second := LatestStatusPerStudent(records, "2024-01-10")

	if len(first) != len(second) {
		t.Fatalf("sizes differ: %d vs %d", len(first), len(second))
	}
	for id, status := range first {
		if second[id] != status {
			t.Errorf("student %s: %q then %q", id, status, second[id])
		}
	}
}

func TestRecentSessions(t *testing.T) {
	records := []Record{
		rec("2024-01-09", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P1 - 09:00", "bob", StatusAbsent),
		rec("2024-01-10", "P3 - 11:00", "alice", StatusPresent),
		rec("2024-01-08", "P2 - 10:00", "alice", StatusOD),
	}

	got := RecentSessions(records, 5)

	wantKeys := []SessionKey{
		{Date: "2024-01-10", Label: "P3 - 11:00"},
		{Date: "2024-01-10", Label: "P1 - 09:00"},
		{Date: "2024-01-09", Label: "P1 - 09:00"},
		{Date: "2024-01-08", Label: "P2 - 10:00"},
	}
	if len(got) != len(wantKeys) {
		t.Fatalf("got %d sessions, want %d", len(got), len(wantKeys))
	}
	for i, want := range wantKeys {
		if got[i].Date != want.Date || got[i].Label != want.Label {
			t.Errorf("session %d: got (%s, %s), want (%s, %s)", i, got[i].Date, got[i].Label, want.Date, want.Label)
		}
	}

	limited := RecentSessions(records, 2)
	if len(limited) != 2 {
		t.Errorf("limit 2: got %d sessions", len(limited))
	}
}

func TestDepartmentBreakdown(t *testing.T) {
	roster := []RosterEntry{
		{ID: "alice", Department: "A"},
		{ID: "bob", Department: "A"},
		{ID: "carol", Department: "B"},
	}
	records := []Record{
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P1 - 09:00", "bob", StatusAbsent),
	}

	got := DepartmentBreakdown(roster, records, "2024-01-10", []string{"A", "B"})

	if len(got) != 2 {
		t.Fatalf("got %d departments, want 2", len(got))
	}
	a := got[0]
	if a.Present != 1 || a.Absent != 1 || a.OD != 0 || a.Total != 2 || a.Percentage != 50 {
		t.Errorf("dept A: got %+v, want present=1 absent=1 od=0 total=2 percentage=50", a)
	}
	b := got[1]
	if b.Present != 0 || b.Absent != 0 || b.OD != 0 || b.Percentage != 0 {
		t.Errorf("dept B with no marks: got %+v, want all zeros", b)
	}
}

func TestDepartmentBreakdownPercentageBounds(t *testing.T) {
	roster := []RosterEntry{
		{ID: "s1", Department: "A"},
		{ID: "s2", Department: "A"},
		{ID: "s3", Department: "A"},
	}
	tests := []struct {
		name    string
		records []Record
	}{
		{name: "no records"},
		{
			name: "all absent",
			records: []Record{
				rec("2024-01-10", "P1 - 09:00", "s1", StatusAbsent),
				rec("2024-01-10", "P1 - 09:00", "s2", StatusAbsent),
			},
		},
		{
			name: "all present",
			records: []Record{
				rec("2024-01-10", "P1 - 09:00", "s1", StatusPresent),
				rec("2024-01-10", "P1 - 09:00", "s2", StatusPresent),
				rec("2024-01-10", "P1 - 09:00", "s3", StatusPresent),
			},
		},
		{
			name: "partial marking uses marked count as denominator",
			records: []Record{
				rec("2024-01-10", "P1 - 09:00", "s1", StatusPresent),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DepartmentBreakdown(roster, tt.records, "2024-01-10", []string{"A"})
			p := got[0].Percentage
			if p < 0 || p > 100 {
				t.Errorf("percentage %d out of [0,100]", p)
			}
		})
	}

	partial := DepartmentBreakdown(roster, []Record{
		rec("2024-01-10", "P1 - 09:00", "s1", StatusPresent),
	}, "2024-01-10", []string{"A"})
	if partial[0].Percentage != 100 {
		t.Errorf("partial marking: got %d%%, want 100%% (denominator is marked students, not roster)", partial[0].Percentage)
	}
}

func TestTotals(t *testing.T) {
	records := []Record{
		rec("2024-01-10", "P1 - 09:00", "alice", StatusPresent),
		rec("2024-01-10", "P1 - 09:00", "bob", StatusAbsent),
		rec("2024-01-10", "P1 - 09:00", "carol", StatusOD),
		rec("2024-01-10", "P2 - 10:00", "bob", StatusPresent),
	}

	got := Totals(records, "2024-01-10")

	if got.Present != 2 || got.Absent != 0 || got.OD != 1 {
		t.Errorf("got %+v, want present=2 absent=0 od=1 (P2 overrides bob)", got)
	}
	if got.Percentage != 67 {
		t.Errorf("percentage = %d, want 67", got.Percentage)
	}

	empty := Totals(nil, "2024-01-10")
	if empty.Present != 0 || empty.Percentage != 0 {
		t.Errorf("empty input: got %+v, want zeros", empty)
	}
}
