package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
)

// workbook builds an in-memory .xlsx whose first sheet holds rows.
func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, start, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadRoster(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Email", "Name"},
		{"Student@Demo", "Alice Smith"},
		{"", "No Email"},
		{" bob@demo ", "Bob Wilson"},
	})

	roster, err := ReadRoster(buf)
	require.NoError(t, err)
	assert.Equal(t, []gradebook.RosterRow{
		{Email: "student@demo", Name: "Alice Smith"},
		{Email: "bob@demo", Name: "Bob Wilson"},
	}, roster)
}

func TestReadRoster_NotAWorkbook(t *testing.T) {
	if _, err := ReadRoster(strings.NewReader("email,name\n")); err == nil {
		t.Error("ReadRoster() error = nil, want error")
	}
}

func TestReadGrades(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]interface{}
		want    []gradebook.GradeRow
		wantErr string
	}{
		{
			name: "scores and blanks",
			rows: [][]interface{}{
				{"Email", "HW 1", "Test 1"},
				{"student@demo", 9, 92.5},
				{"bob@demo", nil, 85},
			},
			want: []gradebook.GradeRow{
				{StudentEmail: "student@demo", AssignmentTitle: "HW 1", Score: null.Float64From(9)},
				{StudentEmail: "student@demo", AssignmentTitle: "Test 1", Score: null.Float64From(92.5)},
				{StudentEmail: "bob@demo", AssignmentTitle: "HW 1", Score: null.Float64{}},
				{StudentEmail: "bob@demo", AssignmentTitle: "Test 1", Score: null.Float64From(85)},
			},
		},
		{
			name: "non numeric cell",
			rows: [][]interface{}{
				{"Email", "HW 1", "Test 1"},
				{"student@demo", 9, "absent"},
			},
			wantErr: "cell C2",
		},
		{
			name: "not a number",
			rows: [][]interface{}{
				{"Email", "HW 1"},
				{"student@demo", 9},
				{"bob@demo", "NaN"},
			},
			wantErr: "cell B3",
		},
		{
			name: "infinite score",
			rows: [][]interface{}{
				{"Email", "HW 1", "Test 1"},
				{"student@demo", 9, "+Inf"},
			},
			wantErr: "cell C2",
		},
		{
			name: "header only",
			rows: [][]interface{}{{"Email", "HW 1"}},
			want: []gradebook.GradeRow{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadGrades(workbook(t, tt.rows))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ReadGrades() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteGradebook(t *testing.T) {
	gb := gradebook.Gradebook{
		Report: gradebook.ClassReport{
			ClassName: "Algebra I",
			Students: []gradebook.StudentStanding{
				{StudentID: "stu-1", Name: "Alice Smith", Email: "student@demo", Grade: null.Float64From(91.25), Letter: grading.LetterA},
				{StudentID: "stu-2", Name: "Bob Wilson", Email: "bob@demo", Letter: grading.NoGrade},
			},
			Average:       null.Float64From(91.25),
			AverageLetter: grading.LetterA,
		},
		Assignments: []grading.Assignment{
			{ID: "asg-1", Title: "HW 1", Points: 10},
			{ID: "asg-2", Title: "Test 1", Points: 100},
		},
		Scores: map[string]map[string]null.Float64{
			"stu-1": {"asg-1": null.Float64From(9), "asg-2": null.Float64From(92)},
			"stu-2": {"asg-1": null.Float64{}, "asg-2": null.Float64{}},
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteGradebook(buf, gb))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, gradebookSheet, f.GetSheetName(0))

	rows, err := f.GetRows(gradebookSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Student", "Email", "HW 1 (10 pts)", "Test 1 (100 pts)", "Percent", "Letter"}, rows[0])
	assert.Equal(t, []string{"Alice Smith", "student@demo", "9", "92", "91.25", "A"}, rows[1])
	assert.Equal(t, "-", rows[2][5])
	assert.Equal(t, "Class average", rows[3][0])
	assert.Equal(t, "A", rows[3][5])
}
