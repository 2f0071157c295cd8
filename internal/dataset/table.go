// Package dataset holds the launch records the dashboard charts.
//
// A Table is built once, at process start, and is never mutated afterwards.
// Handlers share one *Table and read it concurrently without locking.
package dataset

import (
	"iter"
	"slices"
)

// Outcome classes as they appear in the "class" column.
const (
	Failure = 0
	Success = 1
)

// LaunchRecord is one row of the launch dataset.
type LaunchRecord struct {
	FlightNumber   int     `json:"flight,omitempty"`
	LaunchSite     string  `json:"site"`
	PayloadMassKg  float64 `json:"mass,omitempty"`
	HasPayload     bool    `json:"has_mass"`
	Class          int     `json:"class"`
	BoosterVersion string  `json:"booster"`
	Orbit          string  `json:"orbit,omitempty"`
}

// Table is an immutable collection of launch records.
type Table struct {
	records []LaunchRecord
	sites   []string
	siteSet map[string]struct{}
}

// New builds a Table from records. The slice is copied, so later changes to
// records do not leak into the table. Launch sites are collected in the order
// they first appear; records without a site are not counted as a site.
func New(records []LaunchRecord) *Table {
	t := &Table{
		records: slices.Clone(records),
		siteSet: make(map[string]struct{}),
	}
	for _, r := range t.records {
		if r.LaunchSite == "" {
			continue
		}
		if _, ok := t.siteSet[r.LaunchSite]; ok {
			continue
		}
		t.siteSet[r.LaunchSite] = struct{}{}
		t.sites = append(t.sites, r.LaunchSite)
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// At returns the i-th record.
func (t *Table) At(i int) LaunchRecord { return t.records[i] }

// All iterates the records in load order.
func (t *Table) All() iter.Seq[LaunchRecord] {
	return func(yield func(LaunchRecord) bool) {
		for _, r := range t.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Sites returns the distinct launch sites in first-seen order.
func (t *Table) Sites() []string { return slices.Clone(t.sites) }

// HasSite reports whether site occurs in the table.
func (t *Table) HasSite(site string) bool {
	_, ok := t.siteSet[site]
	return ok
}

// PayloadBounds returns the smallest and largest known payload mass.
// ok is false when no record carries a payload.
func (t *Table) PayloadBounds() (lo, hi float64, ok bool) {
	for _, r := range t.records {
		if !r.HasPayload {
			continue
		}
		if !ok {
			lo, hi, ok = r.PayloadMassKg, r.PayloadMassKg, true
			continue
		}
		lo = min(lo, r.PayloadMassKg)
		hi = max(hi, r.PayloadMassKg)
	}
	return lo, hi, ok
}
