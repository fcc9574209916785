package importer

import (
	"sort"

	"github.com/bookdrop/bookdrop/pkg/models"
)

type UnitFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type UnitAnomaly struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Report is the outcome of one batch. Failures and anomalies are sorted by
// path and BookIDs follow unit order.
type Report struct {
	UnitsAttempted int           `json:"units_attempted"`
	UnitsSucceeded int           `json:"units_succeeded"`
	Failures       []UnitFailure `json:"failures"`
	Anomalies      []UnitAnomaly `json:"anomalies"`
	BookIDs        []int         `json:"book_ids"`
}

func (r *Report) UnitsFailed() int {
	return len(r.Failures)
}

// Summary is the condensed form stored on the job.
func (r *Report) Summary() *models.JobImportSummary {
	ids := make([]int, len(r.BookIDs))
	copy(ids, r.BookIDs)
	return &models.JobImportSummary{
		UnitsAttempted: r.UnitsAttempted,
		UnitsSucceeded: r.UnitsSucceeded,
		UnitsFailed:    r.UnitsFailed(),
		Anomalies:      len(r.Anomalies),
		BookIDs:        ids,
	}
}

type unitResult struct {
	book *models.Book
	err  error
}

func buildReport(units []ImportUnit, results []unitResult) *Report {
	report := &Report{
		UnitsAttempted: len(units),
		Failures:       []UnitFailure{},
		Anomalies:      []UnitAnomaly{},
		BookIDs:        []int{},
	}
	for i, unit := range units {
		for _, kind := range unit.Anomalies {
			report.Anomalies = append(report.Anomalies, UnitAnomaly{Path: unit.RelPath, Kind: kind})
		}
		res := results[i]
		if res.err != nil {
			report.Failures = append(report.Failures, UnitFailure{Path: unit.RelPath, Reason: res.err.Error()})
			continue
		}
		report.UnitsSucceeded++
		report.BookIDs = append(report.BookIDs, res.book.ID)
	}
	sort.SliceStable(report.Failures, func(i, j int) bool {
		return report.Failures[i].Path < report.Failures[j].Path
	})
	sort.SliceStable(report.Anomalies, func(i, j int) bool {
		return report.Anomalies[i].Path < report.Anomalies[j].Path
	})
	return report
}
