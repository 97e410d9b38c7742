package csvimport

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"academix/internal/roster"
)

// Candidate is a student row parsed from an uploaded CSV, ready for
// bulk insert.
type Candidate struct {
	Name       string `json:"name"`
	RollNo     string `json:"roll_no"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// RowError points at a malformed CSV line. Bad rows are reported, not
// silently dropped.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result carries the parsed candidates and the lines that failed.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Errors     []RowError  `json:"errors,omitempty"`
}

// Parse reads a two-to-four column CSV: name, roll_no, department?,
// year?. A header row is detected and skipped when the first line's
// cells look like column names.
func Parse(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var res Result
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Reason: "unparseable row"})
			continue
		}
		if line == 1 && isHeader(row) {
			continue
		}
		cand, rerr := parseRow(row, line)
		if rerr != nil {
			res.Errors = append(res.Errors, *rerr)
			continue
		}
		res.Candidates = append(res.Candidates, cand)
	}
	return res, nil
}

// ParseBase64 accepts either raw base64 or a full data URL, the two
// shapes browser file pickers produce.
func ParseBase64(data string) (Result, error) {
	if i := strings.Index(data, ";base64,"); i >= 0 {
		data = data[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode csv payload: %w", err)
	}
	return Parse(strings.NewReader(string(raw)))
}

// Students converts candidates into roster rows for the given user.
func (r Result) Students(userID string) []roster.Student {
	students := make([]roster.Student, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		students = append(students, roster.Student{
			UserID:     userID,
			Name:       c.Name,
			RollNo:     c.RollNo,
			Department: c.Department,
			Year:       c.Year,
			Status:     roster.StatusActive,
		})
	}
	return students
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "name" || first == "student" || first == "student name"
}

func parseRow(row []string, line int) (Candidate, *RowError) {
	if len(row) < 2 {
		return Candidate{}, &RowError{Line: line, Reason: "expected at least 2 columns (name, roll_no)"}
	}
	if len(row) > 4 {
		return Candidate{}, &RowError{Line: line, Reason: fmt.Sprintf("expected at most 4 columns, got %d", len(row))}
	}
	cand := Candidate{
		Name:   strings.TrimSpace(row[0]),
		RollNo: strings.TrimSpace(row[1]),
	}
	if cand.Name == "" {
		return Candidate{}, &RowError{Line: line, Reason: "empty name"}
	}
	if cand.RollNo == "" {
		return Candidate{}, &RowError{Line: line, Reason: "empty roll_no"}
	}
	if len(row) >= 3 {
		cand.Department = strings.TrimSpace(row[2])
	}
	if len(row) == 4 {
		year, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return Candidate{}, &RowError{Line: line, Reason: fmt.Sprintf("bad year %q", row[3])}
		}
		cand.Year = year
	}
	return cand, nil
}
