// Package spreadsheet reads rosters and grades from .xlsx workbooks and writes gradebooks to them.
package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
)

const gradebookSheet = "Gradebook"

var ErrNoSheet = errors.New("workbook does not contain any sheets")

// firstSheetRows returns the rows of the first sheet of the workbook read from r.
func firstSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return core.CleanString(row[i])
	}
	return ""
}

// ReadRoster reads students from the first sheet: column A holds the email, column B the name.
// The first row is a header; rows without an email are skipped.
func ReadRoster(r io.Reader) ([]gradebook.RosterRow, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, err
	}

	roster := make([]gradebook.RosterRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		email := strings.ToLower(cell(row, 0))
		if email == "" {
			continue
		}
		roster = append(roster, gradebook.RosterRow{Email: email, Name: cell(row, 1)})
	}
	return roster, nil
}

// ReadGrades reads scores from the first sheet. The header holds "Email" followed by assignment
// titles; each row holds a student email followed by scores. Blank cells are ungraded.
func ReadGrades(r io.Reader) ([]gradebook.GradeRow, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []gradebook.GradeRow{}, nil
	}

	header := rows[0]
	grades := make([]gradebook.GradeRow, 0)
	for i, row := range rows[1:] {
		email := strings.ToLower(cell(row, 0))
		if email == "" {
			continue
		}
		for col := 1; col < len(header); col++ {
			title := cell(header, col)
			if title == "" {
				continue
			}
			score, err := parseScore(cell(row, col))
			if err != nil {
				name, _ := excelize.CoordinatesToCellName(col+1, i+2)
				return nil, errors.Wrapf(err, "cell %s", name)
			}
			grades = append(grades, gradebook.GradeRow{StudentEmail: email, AssignmentTitle: title, Score: score})
		}
	}
	return grades, nil
}

func parseScore(s string) (null.Float64, error) {
	if s == "" {
		return null.Float64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float64{}, errors.Errorf("invalid score %q", s)
	}
	return null.Float64From(f), nil
}

// WriteGradebook writes a workbook with one row per student, one column per assignment,
// the final percentage and letter, and a class average row.
func WriteGradebook(w io.Writer, gb gradebook.Gradebook) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), gradebookSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := []interface{}{"Student", "Email"}
	for _, asg := range gb.Assignments {
		header = append(header, fmt.Sprintf("%s (%g pts)", asg.Title, asg.Points))
	}
	header = append(header, "Percent", "Letter")
	if err := f.SetSheetRow(gradebookSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	if err = f.SetRowStyle(gradebookSheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	rowNum := 2
	for _, st := range gb.Report.Students {
		row := []interface{}{st.Name, st.Email}
		for _, asg := range gb.Assignments {
			row = append(row, cellValue(gb.Scores[st.StudentID][asg.ID]))
		}
		row = append(row, cellValue(round(st.Grade)), string(st.Letter))
		if err = writeRow(f, rowNum, row); err != nil {
			return err
		}
		rowNum++
	}

	avg := []interface{}{"Class average", ""}
	for range gb.Assignments {
		avg = append(avg, nil)
	}
	avg = append(avg, cellValue(round(gb.Report.Average)), string(gb.Report.AverageLetter))
	if err = writeRow(f, rowNum, avg); err != nil {
		return err
	}
	if err = f.SetRowStyle(gradebookSheet, rowNum, rowNum, bold); err != nil {
		return errors.Wrap(err, "styling average")
	}

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, row []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err = f.SetSheetRow(gradebookSheet, start, &row); err != nil {
		return errors.Wrapf(err, "writing row %d", rowNum)
	}
	return nil
}

// cellValue leaves absent values blank.
func cellValue(v null.Float64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// round keeps two decimals.
func round(v null.Float64) null.Float64 {
	if !v.Valid {
		return v
	}
	return null.Float64From(math.Round(v.Float64*100) / 100)
}

