package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Known suppliers and the filter value selecting all of them.
const (
	SupplierAnecoop  = "anecoop"
	SupplierSolagora = "solagora"
	SupplierAll      = "all"
)

var ErrInvalidSupplier = errors.New("invalid supplier")

// DefaultSuppliers is the supplier set used when none is configured.
var DefaultSuppliers = []string{SupplierAnecoop, SupplierSolagora}

// NormalizeSupplier lower-cases and trims a supplier filter; empty means all.
func NormalizeSupplier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SupplierAll
	}
	return s
}

// ExpandSupplier resolves a supplier filter against the known suppliers.
func ExpandSupplier(filter string, known []string) ([]string, error) {
	filter = NormalizeSupplier(filter)
	if filter == SupplierAll {
		out := append([]string(nil), known...)
		sort.Strings(out)
		return out, nil
	}
	for _, s := range known {
		if s == filter {
			return []string{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSupplier, filter)
}
