// Command clinica-dash is the terminal dashboard. It talks to the clinica
// REST store when reachable and otherwise works on the local fallback cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"clinica/internal/cli"
	"clinica/internal/core"
	"clinica/internal/dashboard"
	"clinica/internal/log"
)

const usage = `usage: clinica-dash <command> [flags]

commands:
  list        show transactions (-type, -category, -from, -to, -search)
  stats       show totals, expense by category and the recent timeline
  add         record a transaction (-amount, -description, -type, -category, -date)
  delete ID   remove a transaction
  insight     ask the configured provider to analyze the collection
  categories  list the known categories
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr, getLogLevel())

	if err := run(os.Args[1], os.Args[2:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// getLogLevel keeps the dashboard quiet unless LOG_LEVEL asks otherwise.
func getLogLevel() string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "warn"
}

func run(command string, args []string, out io.Writer, logger *log.Logger) error {
	if command == "categories" {
		return printCategories(out)
	}
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg := cli.LoadAndValidateConfig(logger)
	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	dashLogger := logger.WithComponent(log.ComponentDashboard)
	session := dashboard.NewSession(
		dashboard.NewRemoteStore(cfg.APIBaseURL, nil, dashLogger),
		dashboard.NewFileCache(cfg.CacheDir, logger.WithComponent(log.ComponentFallback)),
		cli.NewInsightService(ctx, cfg, logger),
		dashLogger,
	)

	mode := session.Refresh(ctx)
	if mode == dashboard.ModeLocal {
		fmt.Fprintf(out, "mode: %s (server at %s unreachable, using local cache)\n\n", mode, cfg.APIBaseURL)
	} else {
		fmt.Fprintf(out, "mode: %s (%s)\n\n", mode, cfg.APIBaseURL)
	}

	switch command {
	case "list":
		return listCmd(session, args, out)
	case "stats":
		return statsCmd(session, out)
	case "add":
		return addCmd(ctx, session, args, out)
	case "delete":
		return deleteCmd(ctx, session, args, out)
	case "insight":
		return insightCmd(ctx, session, out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

func listCmd(session *dashboard.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	typ := fs.String("type", "", "INCOME or EXPENSE")
	category := fs.String("category", "", "exact category")
	from := fs.String("from", "", "first date, YYYY-MM-DD")
	to := fs.String("to", "", "last date, YYYY-MM-DD")
	search := fs.String("search", "", "case-insensitive text in the description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := core.Filter{Category: *category, Search: *search}
	if *typ != "" {
		t, err := core.ParseType(*typ)
		if err != nil {
			return err
		}
		f.Type = t
	}
	var err error
	if f.StartDate, err = optionalDate(*from); err != nil {
		return err
	}
	if f.EndDate, err = optionalDate(*to); err != nil {
		return err
	}

	view := session.View()
	view.SetFilter(f)
	visible := view.Visible()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tDESCRIPTION\tAMOUNT")
	for _, t := range visible {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Type, t.Category, t.Description, formatSigned(t))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d transactions\n", len(visible), len(view.All()))
	return nil
}

func statsCmd(session *dashboard.Session, out io.Writer) error {
	view := session.View()
	stats := view.Stats()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", formatEuro(stats.TotalIncome.StringFixed(2)))
	fmt.Fprintf(tw, "Expense\t%s\n", formatEuro(stats.TotalExpense.StringFixed(2)))
	fmt.Fprintf(tw, "Balance\t%s\n", formatEuro(stats.Balance.StringFixed(2)))
	fmt.Fprintf(tw, "Income/expense\t%d%%\n", stats.Ratio)
	if err := tw.Flush(); err != nil {
		return err
	}

	if byCat := view.ExpenseByCategory(); len(byCat) > 0 {
		fmt.Fprintln(out, "\nExpense by category")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range byCat {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Name, formatEuro(c.Amount.StringFixed(2)))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if months := view.Monthly(); len(months) > 0 {
		fmt.Fprintln(out, "\nMonthly")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, m := range months {
			fmt.Fprintf(tw, "  %s\t+%s\t-%s\n", m.Month, m.Income.StringFixed(2), m.Expense.StringFixed(2))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if points := view.Timeline(core.DefaultTimelineSize); len(points) > 0 {
		fmt.Fprintln(out, "\nRecent")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, p := range points {
			sign := "+"
			if p.Type == core.Expense {
				sign = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s%s\n", p.Label, sign, p.Amount.StringFixed(2))
		}
		return tw.Flush()
	}
	return nil
}

func addCmd(ctx context.Context, session *dashboard.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var d core.Draft
	fs.StringVar(&d.Amount, "amount", "", "positive amount, e.g. 80 or 80,50")
	fs.StringVar(&d.Description, "description", "", "what the transaction is for")
	fs.StringVar(&d.Category, "category", "", "category; defaults by type")
	fs.StringVar(&d.Date, "date", "", "YYYY-MM-DD; defaults to today")
	typ := fs.String("type", string(core.Income), "INCOME or EXPENSE")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := core.ParseType(*typ)
	if err != nil {
		return fmt.Errorf("-type %q: must be INCOME or EXPENSE", *typ)
	}
	d.Type = t
	if _, err := optionalDate(d.Date); err != nil {
		return fmt.Errorf("-date %q: must be YYYY-MM-DD", d.Date)
	}

	submitted, err := session.Create(ctx, d)
	if err != nil {
		return err
	}
	if !submitted {
		return errors.New("nothing recorded: -amount must be a positive number and -description must not be empty")
	}
	fmt.Fprintf(out, "recorded (%d transactions)\n", session.State().Len())
	return nil
}

func deleteCmd(ctx context.Context, session *dashboard.Session, args []string, out io.Writer) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: clinica-dash delete ID")
	}
	if err := session.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s (%d transactions)\n", args[0], session.State().Len())
	return nil
}

func insightCmd(ctx context.Context, session *dashboard.Session, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	text, err := session.Insight(ctx)
	if errors.Is(err, dashboard.ErrNothingToAnalyze) {
		fmt.Fprintln(out, "no transactions to analyze")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

func printCategories(out io.Writer) error {
	for _, typ := range []core.Type{core.Income, core.Expense} {
		fmt.Fprintf(out, "%s (default %q)\n", typ, core.DefaultCategory(typ))
		for _, c := range core.CategoriesFor(typ) {
			fmt.Fprintf(out, "  %s\n", c)
		}
	}
	return nil
}

func optionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func formatSigned(t core.Transaction) string {
	if t.Type == core.Expense {
		return "-" + formatEuro(t.Amount.StringFixed(2))
	}
	return "+" + formatEuro(t.Amount.StringFixed(2))
}

func formatEuro(s string) string {
	return "€ " + s
}
