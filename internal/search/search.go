// Package search filters cached lists by a free-text query.
package search

import (
	"log"
	"strings"

	"comanda/pos/domain"
)

// Options tune a search.
type Options struct {
	CaseSensitive bool
	// MinLength is the shortest query that filters; shorter queries match everything.
	MinLength int
}

// Matcher reports whether item matches the prepared query term.
type Matcher[T any] func(item T, term string, opts Options) bool

// Stats summarizes a filtered list.
type Stats struct {
	Total      int     `json:"total"`
	Filtered   int     `json:"filtered"`
	HasFilter  bool    `json:"hasFilter"`
	Percentage float64 `json:"percentage"`
}

// Filter returns the items that match query. The query is trimmed and, unless
// the search is case sensitive, lower-cased before it reaches match. An item
// whose matcher panics is left out.
func Filter[T any](items []T, query string, match Matcher[T], opts Options) []T {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < opts.MinLength {
		return items
	}
	term := q
	if !opts.CaseSensitive {
		term = strings.ToLower(q)
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if safeMatch(match, item, term, opts) {
			out = append(out, item)
		}
	}
	return out
}

func safeMatch[T any](match Matcher[T], item T, term string, opts Options) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("search matcher failed: %v", r)
			ok = false
		}
	}()
	return match(item, term, opts)
}

// Summarize reports how much of items a query kept.
func Summarize[T any](items, filtered []T, query string) Stats {
	denom := len(items)
	if denom == 0 {
		denom = 1
	}
	return Stats{
		Total:      len(items),
		Filtered:   len(filtered),
		HasFilter:  strings.TrimSpace(query) != "",
		Percentage: float64(len(filtered)) / float64(denom) * 100,
	}
}

// Text reports whether text contains term. Empty values never match.
func Text(text, term string, opts Options) bool {
	if text == "" || term == "" {
		return false
	}
	if !opts.CaseSensitive {
		text = strings.ToLower(text)
		term = strings.ToLower(term)
	}
	return strings.Contains(text, term)
}

// Any reports whether any of fields contains term.
func Any(term string, opts Options, fields ...string) bool {
	for _, f := range fields {
		if Text(f, term, opts) {
			return true
		}
	}
	return false
}

func Customers(c domain.Customer, term string, opts Options) bool {
	return Any(term, opts, c.CustomerName, c.CustomerPhone, c.Document, c.DeliveryAddress, c.District, c.City)
}

func Tables(t domain.Table, term string, opts Options) bool {
	return Any(term, opts, t.Description, string(t.Status))
}

func Products(p domain.Product, term string, opts Options) bool {
	return Any(term, opts, p.Description, p.Price.String())
}

func Categories(c domain.Category, term string, opts Options) bool {
	return Text(c.Description, term, opts)
}

func SalesRecords(r domain.SalesRecord, term string, opts Options) bool {
	return Any(term, opts, r.TableID, r.TotalAmount.String(), r.UserName, r.IdentificationNFCe, string(r.Items))
}
