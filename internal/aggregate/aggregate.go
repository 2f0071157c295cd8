// Package aggregate turns a launch table plus the dashboard's control values
// into the data behind each chart.
//
// Pie and Scatter are pure: they read the table, never modify it, and keep
// no state between calls. Every call recomputes its result from scratch.
package aggregate

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"

	"launchdash/internal/dataset"
)

// AllSites is the site selection that covers every launch site.
const AllSites Site = "ALL"

// Site is the value of the site selector: AllSites or one launch site.
type Site string

// IsAll reports whether s selects every site.
func (s Site) IsAll() bool { return s == AllSites }

// Label is the human-readable form used in chart titles.
func (s Site) Label() string {
	if s.IsAll() {
		return "All Sites"
	}
	return string(s)
}

// OutcomeLabels maps outcome class to the y-axis label of the scatter chart.
var OutcomeLabels = [2]string{dataset.Failure: "Failure", dataset.Success: "Success"}

// Slice is one pie slice.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// PieData is the input of the pie chart.
type PieData struct {
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// Total sums the slice values.
func (p PieData) Total() int {
	n := 0
	for _, s := range p.Slices {
		n += s.Value
	}
	return n
}

// Point is one scatter point: payload mass against outcome class.
type Point struct {
	X        float64 `json:"x"`
	Y        int     `json:"y"`
	Category string  `json:"category"`
}

// ScatterData is the input of the scatter chart.
type ScatterData struct {
	Title      string   `json:"title"`
	Points     []Point  `json:"points"`
	Categories []string `json:"categories"`
	YLabels    []string `json:"y_labels"`
}

// Pie counts launch outcomes.
//
// For AllSites there is one slice per launch site holding that site's number
// of successful launches. For a single site there is one slice per outcome
// class present at the site, holding the number of launches in that class.
// A site the table does not know yields no slices.
func Pie(t *dataset.Table, site Site) PieData {
	if site.IsAll() {
		successes := make(map[string]int)
		for r := range t.All() {
			if r.LaunchSite == "" {
				continue
			}
			if r.Class == dataset.Success {
				successes[r.LaunchSite]++
			}
		}
		sites := t.Sites()
		out := PieData{
			Title:  "Success Counts for All Launch Sites",
			Slices: make([]Slice, 0, len(sites)),
		}
		for _, s := range sites {
			out.Slices = append(out.Slices, Slice{Label: s, Value: successes[s]})
		}
		return out
	}

	out := PieData{
		Title:  "Success Counts for " + string(site),
		Slices: []Slice{},
	}
	if !t.HasSite(string(site)) {
		return out
	}

	var counts [2]int
	for r := range t.All() {
		if r.LaunchSite != string(site) {
			continue
		}
		if r.Class == dataset.Failure || r.Class == dataset.Success {
			counts[r.Class]++
		}
	}
	for class, n := range counts {
		if n > 0 {
			out.Slices = append(out.Slices, Slice{Label: strconv.Itoa(class), Value: n})
		}
	}
	return out
}

// Scatter plots payload mass against outcome for launches whose payload lies
// in rng, restricted to site unless it is AllSites. Launches without a
// payload mass never match.
func Scatter(t *dataset.Table, site Site, rng PayloadRange) ScatterData {
	out := ScatterData{
		Title:      "Payload Success Rate for " + site.Label(),
		Points:     []Point{},
		Categories: []string{},
		YLabels:    []string{OutcomeLabels[dataset.Failure], OutcomeLabels[dataset.Success]},
	}
	if !site.IsAll() && !t.HasSite(string(site)) {
		return out
	}
	seen := make(map[string]struct{})
	for r := range t.All() {
		if !r.HasPayload || !rng.Contains(r.PayloadMassKg) {
			continue
		}
		if !site.IsAll() && r.LaunchSite != string(site) {
			continue
		}
		out.Points = append(out.Points, Point{X: r.PayloadMassKg, Y: r.Class, Category: r.BoosterVersion})
		if _, ok := seen[r.BoosterVersion]; !ok {
			seen[r.BoosterVersion] = struct{}{}
			out.Categories = append(out.Categories, r.BoosterVersion)
		}
	}
	return out
}

// ErrInvalidRange is returned for a payload range whose low end exceeds its
// high end or that has a NaN end.
var ErrInvalidRange = errors.New("invalid payload range")

// PayloadRange is the closed interval [Low, High] of payload mass in kg.
type PayloadRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// NewPayloadRange validates low <= high, neither end being NaN.
func NewPayloadRange(low, high float64) (PayloadRange, error) {
	if math.IsNaN(low) || math.IsNaN(high) {
		return PayloadRange{}, errors.Mark(errors.Newf("range [%g, %g] is not a number", low, high), ErrInvalidRange)
	}
	if low > high {
		return PayloadRange{}, errors.Mark(errors.Newf("low %g exceeds high %g", low, high), ErrInvalidRange)
	}
	return PayloadRange{Low: low, High: high}, nil
}

// Contains reports whether kg lies in the closed interval.
func (r PayloadRange) Contains(kg float64) bool {
	return r.Low <= kg && kg <= r.High
}

// Bounds describes the range slider: its extent and step.
type Bounds struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

// DefaultBounds matches the payload slider of the dashboard: 0 to 10000 kg in
// steps of 1000.
var DefaultBounds = Bounds{Min: 0, Max: 10000, Step: 1000}

// Validate checks the slider description is usable.
func (b Bounds) Validate() error {
	if b.Min >= b.Max {
		return errors.Newf("slider min %g must be below max %g", b.Min, b.Max)
	}
	if b.Step <= 0 {
		return errors.Newf("slider step %g must be positive", b.Step)
	}
	return nil
}

// Full returns the range covering the whole slider.
func (b Bounds) Full() PayloadRange {
	return PayloadRange{Low: b.Min, High: b.Max}
}

// Clamp pulls both ends of r into the slider's extent.
func (b Bounds) Clamp(r PayloadRange) PayloadRange {
	return PayloadRange{
		Low:  min(max(r.Low, b.Min), b.Max),
		High: min(max(r.High, b.Min), b.Max),
	}
}

// Marks returns the labelled slider positions, one per step.
func (b Bounds) Marks() []float64 {
	if b.Step <= 0 || b.Max < b.Min {
		return []float64{b.Min, b.Max}
	}
	// Allow for (Max-Min)/Step landing a hair under a whole number.
	n := int(math.Floor((b.Max-b.Min)/b.Step + 1e-9))
	marks := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		marks = append(marks, b.Min+float64(i)*b.Step)
	}
	return marks
}

// DefaultRange is the slider's initial value: the smallest to largest
// payload in the table, clamped to the slider. A table without payloads
// starts on the full slider.
func DefaultRange(t *dataset.Table, b Bounds) PayloadRange {
	lo, hi, ok := t.PayloadBounds()
	if !ok {
		return b.Full()
	}
	return b.Clamp(PayloadRange{Low: lo, High: hi})
}
