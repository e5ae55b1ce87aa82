// backend-go/cmd/scamark/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/andresuchdata/scamark/backend-go/internal/store/backend"
	"github.com/andresuchdata/scamark/backend-go/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type appKey struct{}

// app is what every command needs once the store is open.
type app struct {
	repo   repository.DecisionRepository
	handle *backend.Handle
	out    *printer
}

func fromContext(c *cli.Context) *app {
	return c.Context.Value(appKey{}).(*app)
}

func setup(c *cli.Context) error {
	cfg := config.Load()
	if err := logger.Init(c.String("log-level"), cfg.Log.File); err != nil {
		return err
	}
	if c.Bool("demo") {
		cfg.Store.Backend = backend.Memory
	}

	handle, err := backend.Open(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	cacheSvc, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		handle.Close()
		return fmt.Errorf("init cache: %w", err)
	}

	a := &app{
		repo:   repository.NewDecisionRepository(handle.Docs, cacheSvc, repository.OptionsFromConfig(cfg)),
		handle: handle,
		out:    newPrinter(os.Stdout, c.Bool("json")),
	}
	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func teardown(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app); ok {
		return a.handle.Close()
	}
	return nil
}

func supplierFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "supplier",
		Aliases: []string{"s"},
		Usage:   "Supplier to read (anecoop, solagora or all)",
		Value:   domain.SupplierAll,
		EnvVars: []string{"SCAMARK_SUPPLIER"},
	}
}

func weekFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "ISO year, defaults to the current one"},
		&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "ISO week, defaults to the current one"},
	}
}

// selectedWeek fills unset flags from the current week.
func selectedWeek(c *cli.Context, repo repository.DecisionRepository) (int, int) {
	current := repo.CurrentWeek()
	year, week := c.Int("year"), c.Int("week")
	if year == 0 {
		year = current.Year
	}
	if week == 0 {
		week = current.Week
	}
	return year, week
}

func main() {
	cliApp := &cli.App{
		Name:  "scamark",
		Usage: "Browse weekly purchasing decisions and their statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "demo", Usage: "Use the in-memory demo dataset"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of tables"},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:  "weeks",
				Usage: "List the weeks holding decisions",
				Flags: []cli.Flag{
					supplierFlag(),
					&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Restrict to one year"},
					&cli.IntFlag{Name: "extend-from", Usage: "Scan backward from this week of the current year"},
				},
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					var (
						weeks []domain.AvailableWeek
						err   error
					)
					switch {
					case c.IsSet("extend-from"):
						weeks, err = a.repo.GetExtendedAvailableWeeksFromWeek(c.Context, c.String("supplier"), c.Int("extend-from"), a.repo.CurrentWeek().Year)
					case c.IsSet("year"):
						weeks, err = a.repo.GetAvailableWeeksForYear(c.Context, c.String("supplier"), c.Int("year"))
					default:
						weeks, err = a.repo.GetAvailableWeeks(c.Context, c.String("supplier"))
					}
					if err != nil {
						return err
					}
					return a.out.weeks(weeks)
				},
			},
			{
				Name:  "decisions",
				Usage: "Show the enriched decisions of a week",
				Flags: append(weekFlags(),
					supplierFlag(),
					&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "all, promo, entrants or sortants", Value: string(analytics.FilterAll)},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Free-text or client code search"},
				),
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					year, week := selectedWeek(c, a.repo)
					supplier := c.String("supplier")

					products, err := a.repo.GetWeekDecisions(c.Context, year, week, supplier)
					if err != nil {
						return err
					}
					in := analytics.FilterInput{Type: analytics.ParseFilterType(c.String("filter")), Query: c.String("query")}
					if in.Type == analytics.FilterEntrants || in.Type == analytics.FilterSortants {
						prev := domain.WeekRef{Year: year, Week: week}.Previous()
						if in.Previous, err = a.repo.GetWeekDecisions(c.Context, prev.Year, prev.Week, supplier); err != nil {
							log.Warn().Err(err).Str("week", prev.String()).Msg("previous week unavailable")
							in.Previous = nil
						}
					}
					return a.out.products(analytics.FilterProducts(products, in))
				},
			},
			{
				Name:  "stats",
				Usage: "Show the counters of a week",
				Flags: append(weekFlags(), supplierFlag()),
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					year, week := selectedWeek(c, a.repo)
					stats, err := a.repo.GetWeekStats(c.Context, year, week, c.String("supplier"))
					if err != nil {
						return err
					}
					return a.out.stats(stats)
				},
			},
			{
				Name:      "palmares",
				Usage:     "Show how regularly a product was referenced since the epoch",
				ArgsUsage: "<product name>",
				Flags: append(weekFlags(),
					supplierFlag(),
					&cli.StringFlag{Name: "code", Usage: "Product code, probed before the name"},
				),
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					name := strings.Join(c.Args().Slice(), " ")
					if name == "" && c.String("code") == "" {
						return cli.Exit("a product name or --code is required", 2)
					}
					p, err := a.repo.GetProductHistorySinceOctober(c.Context, name, c.String("supplier"), repository.HistoryOptions{
						ProductCode: c.String("code"),
						Year:        c.Int("year"),
						Week:        c.Int("week"),
					})
					if err != nil {
						return err
					}
					return a.out.palmares(p)
				},
			},
			{
				Name:      "search",
				Usage:     "Search products over the recent weeks",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{supplierFlag()},
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					query := strings.Join(c.Args().Slice(), " ")
					if strings.TrimSpace(query) == "" {
						return cli.Exit("a query is required", 2)
					}
					products, err := a.repo.SearchProductsInAllWeeks(c.Context, query, c.String("supplier"))
					if err != nil {
						return err
					}
					return a.out.products(products)
				},
			},
			{
				Name:      "ruptures",
				Usage:     "Show the stock shortages of a product",
				ArgsUsage: "<product code>",
				Flags: []cli.Flag{
					supplierFlag(),
					&cli.BoolFlag{Name: "summary", Usage: "Print the aggregate only"},
				},
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					code := c.Args().First()
					if code == "" {
						return cli.Exit("a product code is required", 2)
					}
					if c.Bool("summary") {
						summary, err := a.repo.GetRuptureSummaryForProduct(c.Context, code, c.String("supplier"))
						if err != nil {
							return err
						}
						return a.out.ruptureSummary(summary)
					}
					events, err := a.repo.GetRuptureHistoryForProduct(c.Context, code, c.String("supplier"))
					if err != nil {
						return err
					}
					return a.out.ruptures(events)
				},
			},
			{
				Name:  "browse",
				Usage: "Interactive weekly browser",
				Flags: append(weekFlags(), supplierFlag()),
				Action: func(c *cli.Context) error {
					a := fromContext(c)
					year, week := selectedWeek(c, a.repo)
					return browse(c.Context, a, os.Stdin, year, week, c.String("supplier"))
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("scamark failed")
		os.Exit(1)
	}
}
