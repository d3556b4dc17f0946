// Package worker regenerates ledger report files when transactions
// change and on a periodic full refresh.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bachat/internal/amqp"
	"bachat/internal/core"
	"bachat/internal/export"
	"bachat/internal/service"
)

// Mirror appends a report summary row to an external sheet. Optional.
type Mirror interface {
	AppendReportRow(ctx context.Context, cells []any) error
}

// ReportWorker recomputes ledgers and writes them as CSV files under the
// report directory, one file per (member, ledger, fiscal year).
type ReportWorker struct {
	ledgers   *service.LedgerService
	reportDir string
	mirror    Mirror
}

func NewReportWorker(ledgers *service.LedgerService, reportDir string, mirror Mirror) *ReportWorker {
	return &ReportWorker{
		ledgers:   ledgers,
		reportDir: reportDir,
		mirror:    mirror,
	}
}

// HandleLedgerChange processes a single ledger-change message from AMQP
func (w *ReportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"ledger", msg.Ledger,
		"member_id", msg.MemberID,
		"fiscal_year", msg.FiscalYear)

	switch msg.Ledger {
	case core.LedgerSavings:
		return w.writeSavingsReport(ctx, msg.MemberID, msg.FiscalYear)
	case core.LedgerLoan:
		return w.writeLoanReport(ctx, msg.MemberID, msg.FiscalYear)
	case core.LedgerGroup:
		return w.writeGroupReport(ctx, msg.FiscalYear)
	default:
		slog.WarnContext(ctx, "Unknown ledger in message, dropping", "ledger", msg.Ledger)
		return nil
	}
}

// RefreshAll regenerates every member's savings and loan reports plus
// the group report for each fiscal year. Members are processed
// concurrently; the first failure cancels the rest.
func (w *ReportWorker) RefreshAll(ctx context.Context, fiscalYears []core.FiscalYear) error {
	members, err := w.ledgers.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, fy := range fiscalYears {
		for _, m := range members {
			g.Go(func() error {
				if err := w.writeSavingsReport(ctx, m.ID, fy); err != nil {
					return err
				}
				return w.writeLoanReport(ctx, m.ID, fy)
			})
		}
		g.Go(func() error {
			return w.writeGroupReport(ctx, fy)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh reports: %w", err)
	}
	slog.InfoContext(ctx, "Full report refresh complete",
		"members", len(members), "fiscal_years", len(fiscalYears))
	return nil
}

// RunPeriodicRefresh runs RefreshAll on the given interval until the
// context is cancelled.
func (w *ReportWorker) RunPeriodicRefresh(ctx context.Context, interval time.Duration, fiscalYears []core.FiscalYear) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RefreshAll(ctx, fiscalYears); err != nil {
				slog.ErrorContext(ctx, "Periodic report refresh failed", "error", err)
			}
		}
	}
}

func (w *ReportWorker) writeSavingsReport(ctx context.Context, memberID string, fy core.FiscalYear) error {
	l, err := w.ledgers.SavingsLedger(ctx, memberID, fy, 0)
	if err != nil {
		return fmt.Errorf("compute savings ledger: %w", err)
	}
	path := w.reportPath(memberID, core.LedgerSavings, fy)
	if err := writeFileAtomic(path, func(f *os.File) error {
		return export.WriteSavingsCSV(f, l)
	}); err != nil {
		return err
	}
	w.mirrorRow(ctx, []any{
		time.Now().Format(time.RFC3339), string(core.LedgerSavings), memberID, string(fy),
		l.Totals.FinalBalance.String(), l.Totals.Interest.String(), l.Totals.FinalWithInterest.String(),
	})
	return nil
}

func (w *ReportWorker) writeLoanReport(ctx context.Context, memberID string, fy core.FiscalYear) error {
	l, err := w.ledgers.LoanLedger(ctx, memberID, fy, 0)
	if err != nil {
		return fmt.Errorf("compute loan ledger: %w", err)
	}
	path := w.reportPath(memberID, core.LedgerLoan, fy)
	if err := writeFileAtomic(path, func(f *os.File) error {
		return export.WriteLoanCSV(f, l)
	}); err != nil {
		return err
	}
	w.mirrorRow(ctx, []any{
		time.Now().Format(time.RFC3339), string(core.LedgerLoan), memberID, string(fy),
		l.Totals.FinalLoanRemaining.String(), l.Totals.FinalInterestRemaining.String(), "",
	})
	return nil
}

func (w *ReportWorker) writeGroupReport(ctx context.Context, fy core.FiscalYear) error {
	l, err := w.ledgers.GroupLedger(ctx, fy)
	if err != nil {
		return fmt.Errorf("compute group ledger: %w", err)
	}
	path := w.reportPath("group", core.LedgerGroup, fy)
	if err := writeFileAtomic(path, func(f *os.File) error {
		return export.WriteGroupCSV(f, l)
	}); err != nil {
		return err
	}
	w.mirrorRow(ctx, []any{
		time.Now().Format(time.RFC3339), string(core.LedgerGroup), "", string(fy),
		l.Totals.FinalBalance.String(), l.Totals.In.String(), l.Totals.Out.String(),
	})
	return nil
}

// mirrorRow forwards a summary row to the configured mirror. Mirror
// failures are logged and swallowed; the on-disk report already exists.
func (w *ReportWorker) mirrorRow(ctx context.Context, cells []any) {
	if w.mirror == nil {
		return
	}
	if err := w.mirror.AppendReportRow(ctx, cells); err != nil {
		slog.ErrorContext(ctx, "Failed to mirror report row", "error", err)
	}
}

// reportPath builds <reportDir>/<scope>-<ledger>-<fy>.csv, with the
// fiscal-year slash flattened for the filesystem.
func (w *ReportWorker) reportPath(scope string, l core.Ledger, fy core.FiscalYear) string {
	name := fmt.Sprintf("%s-%s-%s.csv", scope, l, strings.ReplaceAll(string(fy), "/", "-"))
	return filepath.Join(w.reportDir, name)
}

// writeFileAtomic writes through a temp file and renames so readers
// never observe a half-written report.
func writeFileAtomic(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report %s: %w", path, err)
	}
	return nil
}
