// Package cli implements the arctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
	"github.com/odyssey-erp/receivables/jobs"
)

var version = "dev"

// ReportService is the pipeline surface used by the CLI.
type ReportService interface {
	Ping(ctx context.Context) error
	Dashboard(ctx context.Context, filter receivables.InvoiceFilter) (receivables.Dashboard, error)
	GetReportLines(ctx context.Context, filter receivables.ReportFilter) ([]receivables.ReportRow, error)
	IncludesPaymentState() bool
}

// Deps builds collaborators lazily so that commands only connect to what
// they use.
type Deps struct {
	Service func() (ReportService, error)
	Jobs    func() (*JobsCLI, error)
}

type filterFlags struct {
	start    string
	end      string
	customer string
	accounts string
}

func (f *filterFlags) register(cmd *cobra.Command, withAccounts bool) {
	cmd.Flags().StringVar(&f.start, "start", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.customer, "customer", "q", "", "customer name substring")
	if withAccounts {
		cmd.Flags().StringVar(&f.accounts, "accounts", "", "comma separated account code prefixes")
	}
}

func (f *filterFlags) dates() (time.Time, time.Time, error) {
	start, err := flagDate("start", f.start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := flagDate("end", f.end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("--end precedes --start")
	}
	return start, end, nil
}

func flagDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(odoo.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, value)
	}
	return t, nil
}

// NewRootCommand assembles the command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "arctl",
		Short: "Accounts receivable reporting against a live ERP",
		Long: `arctl queries unpaid customer invoices and receivable ledger lines from
the ERP, prints KPIs and writes report exports.

Connection settings are read from the environment (ODOO_URL, ODOO_DB,
ODOO_USERNAME, ODOO_PASSWORD) or from a .env file in the working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPingCommand(deps), newKPIsCommand(deps), newReportCommand(deps), newJobsCommand(deps))
	return root
}

func newPingCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Authenticate against the ERP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := deps.Service()
			if err != nil {
				return err
			}
			if err := svc.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ERP connection OK")
			return nil
		},
	}
}

func newKPIsCommand(deps Deps) *cobra.Command {
	var flags filterFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Print receivable KPIs and the overdue ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := flags.dates()
			if err != nil {
				return err
			}
			svc, err := deps.Service()
			if err != nil {
				return err
			}
			dash, err := svc.Dashboard(cmd.Context(), receivables.InvoiceFilter{Start: start, End: end, Customer: flags.customer})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dash)
			}
			return printDashboard(cmd.OutOrStdout(), dash)
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full dashboard as JSON")
	return cmd
}

func printDashboard(w io.Writer, dash receivables.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "As of\t%s\n", dash.AsOf)
	fmt.Fprintf(tw, "Invoices\t%d\n", dash.TotalInvoices)
	fmt.Fprintf(tw, "Overdue\t%.2f\n", dash.OverdueAmount)
	fmt.Fprintf(tw, "Current\t%.2f\n", dash.CurrentAmount)
	fmt.Fprintf(tw, "Avg overdue days\t%.2f\n", dash.AvgOverdueDays)
	if dash.Top10.Len() > 0 {
		fmt.Fprintln(tw, "\nTop overdue clients\t")
		for i, label := range dash.Top10.Labels {
			fmt.Fprintf(tw, "%d. %s\t%.2f\n", i+1, label, dash.Top10.Values[i])
		}
	}
	return tw.Flush()
}

func newReportCommand(deps Deps) *cobra.Command {
	var flags filterFlags
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write receivable ledger lines to an xlsx or csv file",
		Example: `  arctl report --out receivables.xlsx
  arctl report --start 2024-01-01 --end 2024-03-31 --accounts 1212 --out q1.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			if format != jobs.FormatXLSX && format != jobs.FormatCSV {
				return fmt.Errorf("--out must end in .xlsx or .csv, got %q", out)
			}
			start, end, err := flags.dates()
			if err != nil {
				return err
			}
			svc, err := deps.Service()
			if err != nil {
				return err
			}
			rows, err := svc.GetReportLines(cmd.Context(), receivables.ReportFilter{
				Start: start, End: end, Customer: flags.customer, Accounts: flags.accounts,
			})
			if err != nil {
				return err
			}
			if err := writeReport(out, format, rows, receivables.Columns(svc.IncludesPaymentState())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (.xlsx or .csv)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func writeReport(path, format string, rows []receivables.ReportRow, columns []receivables.Column) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if format == jobs.FormatCSV {
		return export.WriteReportCSV(f, rows, columns)
	}
	return export.WriteReportXLSX(f, rows, columns)
}

func newJobsCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	var flags filterFlags
	var format string
	trigger := &cobra.Command{
		Use:       "trigger <name>",
		Short:     "Enqueue a job (" + jobs.TaskReportExport + " or " + jobs.TaskERPPing + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskReportExport, jobs.TaskERPPing},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := flags.dates(); err != nil {
				return err
			}
			cli, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer cli.Close()
			info, err := cli.Trigger(cmd.Context(), args[0], jobs.ReportExportPayload{
				Start: flags.start, End: flags.end, Customer: flags.customer, Accounts: flags.accounts, Format: format,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	flags.register(trigger, true)
	trigger.Flags().StringVar(&format, "format", jobs.FormatXLSX, "export format: xlsx, csv or sheets")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer cli.Close()
			stats, err := cli.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}

	cmd.AddCommand(trigger, inspect)
	return cmd
}
