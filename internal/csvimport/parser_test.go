package csvimport

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantRows   int
		wantErrors int
	}{
		{
			name:     "two columns",
			input:    "Alice,CS001\nBob,CS002\n",
			wantRows: 2,
		},
		{
			name:     "four columns",
			input:    "Alice,CS001,CSE,2\nBob,CS002,ECE,3\n",
			wantRows: 2,
		},
		{
			name:     "header row skipped",
			input:    "name,roll_no,department,year\nAlice,CS001,CSE,2\n",
			wantRows: 1,
		},
		{
			name:       "bad year reported with line number",
			input:      "Alice,CS001,CSE,two\nBob,CS002\n",
			wantRows:   1,
			wantErrors: 1,
		},
		{
			name:       "missing roll number",
			input:      "Alice\n",
			wantErrors: 1,
		},
		{
			name:       "too many columns",
			input:      "Alice,CS001,CSE,2,extra\n",
			wantErrors: 1,
		},
		{
			name: "empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got.Candidates) != tt.wantRows {
				t.Errorf("candidates = %d, want %d", len(got.Candidates), tt.wantRows)
			}
			if len(got.Errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", got.Errors, tt.wantErrors)
			}
		})
	}
}

func TestParseFieldValues(t *testing.T) {
	got, err := Parse(strings.NewReader("Alice Smith, CS001 ,CSE,2\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got.Candidates))
	}
	c := got.Candidates[0]
	if c.Name != "Alice Smith" || c.RollNo != "CS001" || c.Department != "CSE" || c.Year != 2 {
		t.Errorf("candidate = %+v", c)
	}
}

func TestParseErrorLineNumbers(t *testing.T) {
	got, err := Parse(strings.NewReader("Alice,CS001\nBob\nCarol,CS003\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got.Errors) != 1 {
		t.Fatalf("errors = %v, want 1", got.Errors)
	}
	if got.Errors[0].Line != 2 {
		t.Errorf("error line = %d, want 2", got.Errors[0].Line)
	}
}

func TestParseBase64(t *testing.T) {
	csv := "Alice,CS001\nBob,CS002\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(csv))

	tests := []struct {
		name  string
		input string
	}{
		{name: "raw base64", input: encoded},
		{name: "data url", input: "data:text/csv;base64," + encoded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBase64(tt.input)
			if err != nil {
				t.Fatalf("ParseBase64() error = %v", err)
			}
			if len(got.Candidates) != 2 {
				t.Errorf("candidates = %d, want 2", len(got.Candidates))
			}
		})
	}

	if _, err := ParseBase64("not base64!!!"); err == nil {
		t.Error("ParseBase64 accepted invalid payload")
	}
}

func TestStudents(t *testing.T) {
	res := Result{Candidates: []Candidate{{Name: "Alice", RollNo: "CS001", Department: "CSE", Year: 2}}}

	students := res.Students("user-1")

	if len(students) != 1 {
		t.Fatalf("students = %d, want 1", len(students))
	}
	s := students[0]
	if s.UserID != "user-1" || s.Name != "Alice" || s.Status != "Active" {
		t.Errorf("student = %+v", s)
	}
}
