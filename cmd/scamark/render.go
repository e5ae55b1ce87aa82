package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

// printer writes either aligned tables or indented JSON.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func (p *printer) weeks(weeks []domain.AvailableWeek) error {
	if p.json {
		return p.encode(weeks)
	}
	if len(weeks) == 0 {
		_, err := fmt.Fprintln(p.w, "no week holds decisions")
		return err
	}
	return p.table("YEAR\tWEEK\tSUPPLIER", func(tw *tabwriter.Writer) {
		for _, w := range weeks {
			fmt.Fprintf(tw, "%d\t%02d\t%s\n", w.Year, w.Week, w.Supplier)
		}
	})
}

func (p *printer) products(products []domain.EnrichedProduct) error {
	if p.json {
		return p.encode(products)
	}
	if len(products) == 0 {
		_, err := fmt.Fprintln(p.w, "no products")
		return err
	}
	return p.table("PRODUCT\tCODE\tSUPPLIER\tWEEK\tPRICE\tPROMO\tSCAS\tCLIENTS", func(tw *tabwriter.Writer) {
		for _, pr := range products {
			promo := ""
			if pr.IsPromo {
				promo = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d-W%02d\t%.2f\t%s\t%d\t%s\n",
				pr.ProductName, pr.ProductCode, pr.Supplier, pr.Year, pr.Week,
				pr.PrixRetenu, promo, pr.TotalScas, clientNames(pr.Decisions, 3))
		}
	})
}

func clientNames(ds []domain.ClientDecision, limit int) string {
	names := make([]string, 0, limit)
	for i, d := range ds {
		if i == limit {
			names = append(names, fmt.Sprintf("+%d", len(ds)-limit))
			break
		}
		names = append(names, d.ClientName)
	}
	return strings.Join(names, ", ")
}

func (p *printer) stats(s domain.WeekStats) error {
	if p.json {
		return p.encode(s)
	}
	return p.table("WEEK\tSUPPLIER\tPRODUCTS\tCLIENTS\tPROMO\tIN\tOUT", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%d-W%02d\t%s\t%d\t%d\t%d\t+%d\t-%d\n",
			s.Year, s.Week, s.Supplier, s.TotalProducts, s.UniqueClients, s.PromoProducts, s.ProductsIn, s.ProductsOut)
	})
}

func (p *printer) palmares(pm domain.Palmares) error {
	if p.json {
		return p.encode(pm)
	}
	_, err := fmt.Fprintf(p.w, "referenced %d of %d weeks (%d%%), %d consecutive\n",
		pm.TotalReferences, pm.TotalWeeks, pm.Percentage, pm.ConsecutiveWeeks)
	return err
}

func (p *printer) ruptures(events []domain.RuptureEvent) error {
	if p.json {
		return p.encode(events)
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(p.w, "no ruptures")
		return err
	}
	return p.table("DATE\tWEEK\tSUPPLIER\tCLIENT\tORDERED\tMISSING", func(tw *tabwriter.Writer) {
		for _, e := range events {
			for _, sca := range e.Scas {
				fmt.Fprintf(tw, "%s\t%d-W%02d\t%s\t%s\t%.0f\t%.0f\n",
					e.Timestamp.Format("2006-01-02"), e.Year, e.Week, e.Supplier, sca.ClientName, sca.Ordered, sca.Missing)
			}
		}
	})
}

func (p *printer) ruptureSummary(s domain.RuptureSummary) error {
	if p.json {
		return p.encode(s)
	}
	last := "never"
	if s.LastRupture != nil {
		last = s.LastRupture.Format("2006-01-02")
	}
	_, err := fmt.Fprintf(p.w, "%s: %d ruptures over %d weeks, %d clients, %.0f of %.0f missing, last %s\n",
		s.ProductCode, s.TotalRuptures, len(s.Weeks), s.AffectedClients, s.TotalMissing, s.TotalOrdered, last)
	return err
}
