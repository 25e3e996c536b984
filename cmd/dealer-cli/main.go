// dealer-cli runs price comparisons in process against the simulated
// platform adapters.
//
// Usage:
//
//	dealer-cli search "pizza in Brooklyn under $25" [--category food] [--format json]
//	dealer-cli platforms
//	dealer-cli deals --category ride
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"smart-dealer/internal/adapters"
	"smart-dealer/internal/cache"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/deals"
	"smart-dealer/internal/intent"
	"smart-dealer/internal/models"
	"smart-dealer/internal/search"
	"smart-dealer/pkg/registry"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "dealer-cli",
		Usage:   "Compare prices across delivery, shopping, ride and hotel platforms",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"DEALER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "deals-file",
				Usage:   "Deal catalog YAML; the built-in catalog is used when empty",
				EnvVars: []string{"DEALER_DEALS_FILE"},
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			platformsCommand(),
			dealsCommand(),
		},
	}
}

// =============================================================================
// SEARCH COMMAND
// =============================================================================

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search every platform of a category and rank the offers",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "food, product, ride or hotel; detected from the query when empty"},
			&cli.Float64Flag{Name: "max-price", Usage: "Drop offers whose total exceeds this"},
			&cli.IntFlag{Name: "max-time", Usage: "Drop offers slower than this many minutes"},
			&cli.StringFlag{Name: "location", Aliases: []string{"l"}},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of results"},
			&cli.StringSliceFlag{Name: "platform", Aliases: []string{"p"}, Usage: "Restrict to platforms (repeatable)"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "Per-adapter timeout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format (table, json)"},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	log := logger.NewStructured(c.String("log-level"), "console")

	var explicit models.Category
	if v := c.String("category"); v != "" {
		cat, err := models.ParseCategory(v)
		if err != nil {
			return err
		}
		explicit = cat
	}

	parsed, err := intent.NewParser(log).Parse(query, explicit)
	if err != nil {
		return err
	}

	constraints := models.Constraints{
		Location:   c.String("location"),
		MaxResults: c.Int("limit"),
	}
	if c.IsSet("max-price") {
		v := c.Float64("max-price")
		constraints.MaxPrice = &v
	}
	if c.IsSet("max-time") {
		v := c.Int("max-time")
		constraints.MaxTimeMinutes = &v
	}
	for _, id := range c.StringSlice("platform") {
		p, err := models.ParsePlatform(id)
		if err != nil {
			return err
		}
		constraints.Platforms = append(constraints.Platforms, p)
	}

	item := parsed.Item
	if item == "" {
		item = query
	}
	searchIntent, err := models.NewSearchIntent(parsed.Category, item, parsed.Constraints(constraints), "")
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(c.String("deals-file"))
	if err != nil {
		return err
	}
	reg := adapters.NewRegistry()
	if err := adapters.RegisterSimulated(reg); err != nil {
		return err
	}

	orchestrator := search.New(search.Config{AdapterTimeout: c.Duration("timeout")}, search.Dependencies{
		Registry: reg,
		Cache:    cache.New(cache.NewMemoryStore(), cache.DefaultTTL, log),
		Deals:    catalog,
		Logger:   log,
	})

	resp, err := orchestrator.Search(context.Background(), searchIntent)
	orchestrator.Wait()
	if err != nil {
		return err
	}
	resp.Query = query

	if c.String("format") == "json" {
		return writeJSON(c.App.Writer, resp)
	}
	return writeResultsTable(c.App.Writer, resp)
}

func writeResultsTable(w io.Writer, resp *search.Response) error {
	fmt.Fprintf(w, "%s search %q: %d results in %dms (%d/%d platforms)\n\n",
		resp.Category, resp.Query, len(resp.Results), resp.SearchTimeMs,
		resp.Stats.AdaptersSucceeded, resp.Stats.AdaptersTotal)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLATFORM\tITEM\tTOTAL\tFEES\t"+strings.ToUpper(resp.Category.TimeLabel())+"\tRATING\tSCORE\tSAVES\tDEAL")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t$%s\t$%s\t%s\t%s\t%.3f\t$%s\t%s\n",
			r.Rank,
			r.Platform.DisplayName(),
			truncate(r.ItemName, 32),
			money(r.TotalPrice),
			money(r.Fees.Penalty()),
			optionalInt(r.TimeMinutes),
			optionalFloat(r.Rating),
			r.ValueScore,
			money(r.SavingsVsMax),
			strings.Join(r.DealsApplied, ", "),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, a := range resp.Adapters {
		if a.Outcome != search.OutcomeOK && a.Outcome != search.OutcomeCached {
			fmt.Fprintf(w, "\n%s: %s %s", a.Platform, a.Outcome, a.Error)
		}
	}
	return nil
}

// =============================================================================
// PLATFORMS AND DEALS COMMANDS
// =============================================================================

func platformsCommand() *cli.Command {
	return &cli.Command{
		Name:  "platforms",
		Usage: "List supported platforms per category",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table"},
		},
		Action: func(c *cli.Context) error {
			catalog := models.PlatformCatalog()
			if c.String("format") == "json" {
				return writeJSON(c.App.Writer, catalog)
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tPLATFORM\tNAME")
			for _, category := range models.Categories {
				for _, p := range catalog[category] {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", category, p.ID, p.DisplayName)
				}
			}
			return tw.Flush()
		},
	}
}

func dealsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deals",
		Usage: "List active deals",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Only this category"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table"},
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog(c.String("deals-file"))
			if err != nil {
				return err
			}

			categories := models.Categories
			if v := c.String("category"); v != "" {
				cat, err := models.ParseCategory(v)
				if err != nil {
					return err
				}
				categories = []models.Category{cat}
			}

			var active []models.Deal
			now := time.Now()
			for _, cat := range categories {
				found, err := catalog.ActiveDeals(c.Context, cat, now)
				if err != nil {
					return err
				}
				active = append(active, found...)
			}

			if c.String("format") == "json" {
				return writeJSON(c.App.Writer, active)
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tPLATFORM\tTYPE\tDEAL")
			for _, d := range active {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Category, d.Platform, d.Type, d.Label())
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func loadCatalog(path string) (*deals.Catalog, error) {
	if path == "" {
		return deals.NewCatalog(deals.DefaultDeals()), nil
	}
	loaded, err := registry.LoadDeals(path)
	if err != nil {
		return nil, err
	}
	return deals.NewCatalog(loaded), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
