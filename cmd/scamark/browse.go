package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/viewmodel"
)

const browseHelp = `commands:
  week <year> <week>   select a week
  supplier <name>      select a supplier (anecoop, solagora, all)
  filter <type>        all, promo, entrants, sortants
  q [text]             free-text or client search, empty to clear
  suggest <text>       search suggestions
  palmares <n>         palmarès of the n-th listed product
  more                 scan older weeks of the selected year
  weeks                list the loaded weeks
  refresh              reload the selection
  quit`

// browse drives a view-model from line commands read on in.
func browse(ctx context.Context, a *app, in io.Reader, year, week int, supplier string) error {
	vm := viewmodel.New(a.repo, viewmodel.Selection{Year: year, Week: week, Supplier: supplier}, viewmodel.Options{
		SettleDelay: viewmodel.DefaultSettleDelay,
	})
	vm.Refresh(ctx)
	vm.Wait()
	show(a, vm)

	scanner := bufio.NewScanner(in)
	fmt.Fprint(a.out.w, "> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Fprint(a.out.w, "> ")
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(a.out.w, browseHelp)
		case "week":
			if len(args) != 2 {
				fmt.Fprintln(a.out.w, "usage: week <year> <week>")
				break
			}
			y, errY := strconv.Atoi(args[0])
			w, errW := strconv.Atoi(args[1])
			if errY != nil || errW != nil {
				fmt.Fprintln(a.out.w, "year and week must be numbers")
				break
			}
			vm.SelectWeek(ctx, y, w)
			vm.Wait()
			show(a, vm)
		case "supplier":
			if len(args) != 1 {
				fmt.Fprintln(a.out.w, "usage: supplier <name>")
				break
			}
			vm.SelectSupplier(ctx, args[0])
			vm.Wait()
			show(a, vm)
		case "filter":
			f := analytics.FilterAll
			if len(args) > 0 {
				f = analytics.ParseFilterType(args[0])
			}
			vm.SetFilter(f)
			show(a, vm)
		case "q":
			vm.SetQuery(strings.Join(args, " "))
			show(a, vm)
		case "suggest":
			for _, s := range vm.Suggestions(strings.Join(args, " ")) {
				fmt.Fprintf(a.out.w, "  %-8s %s (%d)\n", s.Kind, s.Text, s.Count)
			}
		case "palmares":
			products := vm.FilteredProducts()
			n, err := strconv.Atoi(strings.Join(args, ""))
			if err != nil || n < 1 || n > len(products) {
				fmt.Fprintf(a.out.w, "pick a product between 1 and %d\n", len(products))
				break
			}
			p, err := vm.LoadPalmares(ctx, products[n-1])
			if err != nil {
				fmt.Fprintln(a.out.w, err)
				break
			}
			fmt.Fprintf(a.out.w, "%s: ", products[n-1].ProductName)
			a.out.palmares(p)
		case "more":
			added, err := vm.LoadMoreWeeks(ctx)
			if err != nil {
				fmt.Fprintln(a.out.w, err)
				break
			}
			fmt.Fprintf(a.out.w, "%d more weeks\n", added)
		case "weeks":
			a.out.weeks(vm.State().AvailableWeeks)
		case "refresh":
			vm.Refresh(ctx)
			vm.Wait()
			show(a, vm)
		default:
			fmt.Fprintf(a.out.w, "unknown command %q, try help\n", cmd)
		}
		fmt.Fprint(a.out.w, "> ")
	}
	return scanner.Err()
}

func show(a *app, vm *viewmodel.DecisionsViewModel) {
	st := vm.State()
	if st.Error != "" {
		fmt.Fprintln(a.out.w, "error:", st.Error)
		vm.AcknowledgeError()
	}
	fmt.Fprintf(a.out.w, "%d-W%02d %s, filter %s", st.Selection.Year, st.Selection.Week, st.Selection.Supplier, st.Filter)
	if st.Query != "" {
		fmt.Fprintf(a.out.w, ", query %q", st.Query)
	}
	fmt.Fprintln(a.out.w)
	if st.Stats != nil {
		a.out.stats(*st.Stats)
	}

	products := vm.FilteredProducts()
	for i, p := range products {
		status := vm.ProductStatus(p.ProductName)
		fmt.Fprintf(a.out.w, "%3d. %-28s %-10s %-9s %d scas\n", i+1, p.ProductName, p.Supplier, status, p.TotalScas)
	}
	if len(products) == 0 {
		fmt.Fprintln(a.out.w, "no products")
	}
}
