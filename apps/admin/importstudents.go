package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core/student"
)

// importStudents loads a roster file. A dry run prints what would be inserted.
func (cli *commandLine) importStudents(path string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = f.Close() }()

	preview, err := student.ParseImportFile(f, path)
	if err != nil {
		return err
	}

	if dryRun {
		w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STUDENT\tPARENT\tPHONE\tMONTHLY FEE\tSTATUS")
		for _, ns := range preview.Students {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ns.Name, ns.ParentName, ns.ParentPhone, ns.MonthlyFee.StringFixed(2), ns.Status)
		}
		if err = w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d students to import, %d rows dropped\n", len(preview.Students), preview.Dropped)
		return nil
	}

	res, err := cli.studentSvc.Import(context.Background(), preview.Students)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d students imported, %d rows dropped\n", res.Imported, preview.Dropped)
	return nil
}
