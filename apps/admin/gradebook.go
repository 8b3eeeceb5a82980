package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/services/spreadsheet"
)

func (cli *commandLine) seed() error {
	classes, err := cli.gbSvc.Seed(context.Background())
	if err != nil {
		return err
	}
	for _, cls := range classes {
		fmt.Fprintf(cli.out, "created class %s %q\n", cls.ID, cls.Name)
	}
	fmt.Fprintf(cli.out, "demo accounts use the password %q\n", gradebook.DemoPassword)
	return nil
}

func (cli *commandLine) importRoster(classID, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadRoster(f)
	if err != nil {
		return errors.Wrap(err, "reading roster")
	}
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}
	res, err := cli.gbSvc.EnrollMany(context.Background(), classID, emails)
	if err != nil {
		return err
	}
	cli.printImport(res)
	return nil
}

func (cli *commandLine) importGrades(classID, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadGrades(f)
	if err != nil {
		return errors.Wrap(err, "reading grades")
	}
	res, err := cli.gbSvc.ImportGrades(context.Background(), classID, rows)
	if err != nil {
		return err
	}
	cli.printImport(res)
	return nil
}

func (cli *commandLine) printImport(res gradebook.ImportResult) {
	fmt.Fprintf(cli.out, "imported: %d, skipped: %d\n", res.Imported, res.Skipped)
	for _, msg := range res.Errors {
		fmt.Fprintf(cli.out, "  %s\n", msg)
	}
}

// export writes the gradebook of a class to path, replacing any existing file.
func (cli *commandLine) export(classID, path string) (err error) {
	gb, err := cli.gbSvc.Gradebook(context.Background(), classID)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()
	if err = spreadsheet.WriteGradebook(f, gb); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "wrote %d students to %s\n", len(gb.Report.Students), path)
	return nil
}

func (cli *commandLine) report(classID string) error {
	rpt, err := cli.gbSvc.ClassReport(context.Background(), classID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%d students, %d assignments)\n", rpt.ClassName, rpt.StudentCount, rpt.AssignmentCount)
	if !rpt.WeightsBalanced {
		fmt.Fprintf(cli.out, "warning: category weights sum to %.2f\n", rpt.TotalWeight)
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tEMAIL\tGRADE\tLETTER")
	for _, st := range rpt.Students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Name, st.Email, percent(st.Grade), st.Letter)
	}
	fmt.Fprintf(w, "Class average\t\t%s\t%s\n", percent(rpt.Average), rpt.AverageLetter)
	return w.Flush()
}

func percent(v null.Float64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v.Float64)
}
