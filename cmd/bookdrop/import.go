package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/migrations"
	"github.com/bookdrop/bookdrop/pkg/pdf"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func importCommand(cfg *config.Config, db *bun.DB) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import a zip archive or a directory of books",
		ArgsUsage: "<path.zip|directory>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of units imported concurrently",
				Value: cfg.ImportWorkers,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one path to import", 2)
			}
			path := c.Args().First()
			info, err := os.Stat(path)
			if err != nil {
				return errors.WithStack(err)
			}

			if _, err := migrations.BringUpToDate(c.Context, db); err != nil {
				return err
			}

			runCfg := *cfg
			runCfg.ImportWorkers = c.Int("workers")
			if runCfg.ImportWorkers < 1 {
				runCfg.ImportWorkers = 1
			}

			store, err := storage.New(&runCfg)
			if err != nil {
				return err
			}
			normalizer := languages.NewNormalizer(runCfg.SupportedLanguages)
			pdfReader := pdf.NewReader(&runCfg, normalizer)
			defer pdfReader.Close()

			bar := progressbar.Default(-1, "importing")
			batch := importer.NewBatchImporter(&runCfg, importer.NewPipeline(&runCfg, db, store, normalizer, pdfReader)).
				WithProgress(func(done, total int) {
					if bar.GetMax() != total {
						bar.ChangeMax(total)
					}
					_ = bar.Set(done)
				})

			var report *importer.Report
			if info.IsDir() {
				report, err = batch.RunDirectory(c.Context, path)
			} else {
				report, err = batch.RunArchive(c.Context, path)
			}
			_ = bar.Finish()
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return printJSON(c.App.Writer, report)
			}
			printReport(c.App.Writer, report)
			if report.UnitsFailed() > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, report *importer.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return errors.WithStack(err)
}

func printReport(w io.Writer, report *importer.Report) {
	fmt.Fprintf(w, "\nImported %d of %d units (%d failed)\n", report.UnitsSucceeded, report.UnitsAttempted, report.UnitsFailed())
	if len(report.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
		}
	}
	if len(report.Anomalies) > 0 {
		fmt.Fprintln(w, "\nAnomalies:")
		for _, a := range report.Anomalies {
			fmt.Fprintf(w, "  %s: %s\n", a.Path, strings.ReplaceAll(a.Kind, "_", " "))
		}
	}
}
