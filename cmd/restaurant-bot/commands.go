package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"restaurantbot/internal/analytics"
	"restaurantbot/internal/config"
	"restaurantbot/internal/domain"
	"restaurantbot/internal/service"
	"restaurantbot/internal/summarizer"
	"restaurantbot/internal/tui"
)

func run(ctx context.Context, svc *service.Service, cfg *config.AppConfig, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "search":
		return runSearch(ctx, svc, cfg, rest, os.Stdout)
	case "rag":
		return runRAG(ctx, svc, cfg, rest, os.Stdout)
	case "trend":
		return runTrend(ctx, svc, cfg, rest, os.Stdout)
	case "compare":
		return runCompare(ctx, svc, cfg, rest, os.Stdout)
	case "browse":
		return runBrowse(svc, cfg)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// floatFlag is an optional float flag; it stays nil unless set.
type floatFlag struct{ v *float64 }

func (f *floatFlag) String() string {
	if f.v == nil {
		return ""
	}
	return fmt.Sprint(*f.v)
}

func (f *floatFlag) Set(s string) error {
	var v float64
	if _, err := fmt.Sscan(s, &v); err != nil {
		return err
	}
	f.v = &v
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	internalTag = color.New(color.FgCyan, color.Bold).SprintFunc()
	externalTag = color.New(color.FgMagenta, color.Bold).SprintFunc()
	barColor    = color.New(color.FgGreen).SprintFunc()
)

func writeJSON[T any](w io.Writer, v T, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(domain.FromPair(v, err)); encErr != nil {
		return encErr
	}
	return err
}

func runSearch(ctx context.Context, svc *service.Service, cfg *config.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	k := fs.Int("k", cfg.Retrieval.K, "number of results")
	city := fs.String("city", "", "city filter (defaults to the configured city)")
	state := fs.String("state", "", "state filter")
	cats := fs.String("categories", "", "comma separated category terms (any)")
	var minRating, maxPrice, minConf floatFlag
	fs.Var(&minRating, "min-rating", "minimum rating")
	fs.Var(&maxPrice, "max-price", "maximum price level")
	fs.Var(&minConf, "min-confidence", "minimum confidence")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	hits, err := svc.Search(ctx, service.SearchRequest{
		Query:         strings.Join(fs.Args(), " "),
		K:             *k,
		City:          *city,
		State:         *state,
		Categories:    splitList(*cats),
		MinRating:     minRating.v,
		MaxPrice:      maxPrice.v,
		ConfidenceMin: minConf.v,
	})
	if *asJSON {
		return writeJSON(w, hits, err)
	}
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s (%s, %s)  score=%.3f rating=%s price=%s\n   %s\n",
			i+1, h.RestaurantName, h.City, h.State, float64(h.Score), h.Rating, h.Price,
			summarizer.Clip(h.Text, 200))
	}
	return nil
}

func runRAG(ctx context.Context, svc *service.Service, cfg *config.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("rag", flag.ExitOnError)
	city := fs.String("city", "", "city for the internal search")
	kIn := fs.Int("k-internal", cfg.Retrieval.KInternal, "internal results")
	kEx := fs.Int("k-external", cfg.Retrieval.KExternal, "external results")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	ev, err := svc.Evidence(ctx, strings.Join(fs.Args(), " "), *city, *kIn, *kEx)
	if *asJSON {
		return writeJSON(w, ev, err)
	}
	if err != nil {
		return err
	}
	if ev.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", ev.Summary)
	}
	for _, c := range ev.Citations {
		if c.Source == "internal" {
			fmt.Fprintf(w, "%s %s, %s %s (item %s)\n", internalTag("["+c.Tag+"]"), c.RestaurantName, c.City, c.State, c.ItemID)
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", externalTag("["+c.Tag+"]"), c.Title, c.URL)
	}
	return nil
}

func runTrend(ctx context.Context, svc *service.Service, cfg *config.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("trend", flag.ExitOnError)
	months := fs.Int("months", cfg.Trend.Months, "look-back window in months")
	mode := fs.String("mode", cfg.Trend.Mode, "term combination: all or any")
	must := fs.String("must-include", "", "phrase every counted document must contain")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	report, err := svc.MonthlyTrend(ctx, service.TrendRequest{
		Terms:       fs.Args(),
		Months:      *months,
		MustInclude: *must,
		Mode:        *mode,
	})
	if *asJSON {
		return writeJSON(w, report, err)
	}
	if err != nil {
		return err
	}
	if len(report.Buckets) == 0 {
		fmt.Fprintln(w, "No matching documents in the window.")
		return nil
	}
	for _, b := range report.Buckets {
		fmt.Fprintf(w, "%s  %4d  %s\n", b.Month, b.Count, barColor(strings.Repeat("#", min(b.Count, 60))))
		for _, s := range b.Samples {
			fmt.Fprintf(w, "         - %s %s\n", s.Title, s.URL)
		}
	}
	return nil
}

func runCompare(ctx context.Context, svc *service.Service, _ *config.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	city := fs.String("city", "", "city substring (defaults to the configured city)")
	a := fs.String("a", "", "comma separated category terms for group A")
	b := fs.String("b", "", "comma separated category terms for group B")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	cmp, err := svc.ComparePrices(ctx, *city, splitList(*a), splitList(*b))
	if *asJSON {
		return writeJSON(w, cmp, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "City: %s\n", cmp.City)
	printGroup(w, "A", cmp.A)
	printGroup(w, "B", cmp.B)
	return nil
}

func printGroup(w io.Writer, name string, g analytics.GroupPrice) {
	avg := "n/a"
	if v, ok := g.AvgPrice.Float(); ok {
		avg = fmt.Sprintf("%.2f", v)
	}
	fmt.Fprintf(w, "%s [%s]: avg price %s over %d priced of %d matched\n",
		name, strings.Join(g.Terms, ", "), avg, g.Priced, g.Matched)
}

func runBrowse(svc *service.Service, cfg *config.AppConfig) error {
	m := tui.New(svc, tui.Options{
		KInternal: cfg.Retrieval.KInternal,
		KExternal: cfg.Retrieval.KExternal,
		Timeout:   30 * time.Second,
	})
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
