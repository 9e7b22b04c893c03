package sheets

import (
	"context"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

const (
	receiptsRange = "Receipts!A:I"
	countsRange   = "Counts!A:I"
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04:05"
)

// Mirror copies receipts and count reports into a spreadsheet for the back
// office. One row per line so the sheet can be pivoted by model.
type Mirror struct {
	repo Repository
}

// NewMirror wraps a sheet repository.
func NewMirror(repo Repository) *Mirror {
	return &Mirror{repo: repo}
}

// AppendReceipt writes one row per receipt line.
func (m *Mirror) AppendReceipt(ctx context.Context, receipt models.Receipt) error {
	return m.repo.WriteRows(ctx, receiptsRange, receiptRows(receipt))
}

// SaveCountReport writes one row per counted model.
func (m *Mirror) SaveCountReport(ctx context.Context, report models.CountReport) error {
	return m.repo.WriteRows(ctx, countsRange, countRows(report))
}

func receiptRows(receipt models.Receipt) [][]interface{} {
	rows := make([][]interface{}, 0, len(receipt.Lines))
	for _, line := range receipt.Lines {
		rows = append(rows, []interface{}{
			receipt.CommittedAt.Format(dateLayout),
			receipt.CommittedAt.Format(timeLayout),
			receipt.ID,
			receipt.Kind.Label(),
			receipt.Source,
			receipt.Destination,
			line.ModelCode,
			line.Quantity,
			receipt.Actor,
		})
	}
	return rows
}

func countRows(report models.CountReport) [][]interface{} {
	rows := make([][]interface{}, 0, len(report.Results))
	for _, result := range report.Results {
		status := "Match"
		if !result.Match {
			status = "Mismatch"
		}
		if !result.Counted {
			status += " (not counted)"
		}
		rows = append(rows, []interface{}{
			report.StartedAt.Format(dateLayout),
			report.SessionID,
			report.Location,
			string(report.Type),
			result.ModelCode,
			result.SystemQty,
			result.PhysicalQty,
			result.Diff,
			status,
		})
	}
	return rows
}
