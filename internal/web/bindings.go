package web

import (
	"context"

	"github.com/cockroachdb/errors"

	"launchdash/internal/aggregate"
	"launchdash/internal/chart"
	"launchdash/internal/dataset"
	"launchdash/internal/reactive"
)

// Control and chart ids on the dashboard page.
const (
	SiteDropdownID  = "site-dropdown"
	PayloadSliderID = "payload-slider"
)

var (
	SiteInput     = reactive.Dependency{ID: SiteDropdownID, Property: "value"}
	PayloadInput  = reactive.Dependency{ID: PayloadSliderID, Property: "value"}
	PieOutput     = reactive.Dependency{ID: chart.PieID, Property: "figure"}
	ScatterOutput = reactive.Dependency{ID: chart.ScatterID, Property: "figure"}
)

// Bind registers the two chart callbacks: the pie follows the site
// dropdown, the scatter follows the dropdown and the payload slider.
func Bind(g *reactive.Graph, t *dataset.Table, bounds aggregate.Bounds) error {
	err := g.Register(PieOutput, []reactive.Dependency{SiteInput},
		func(ctx context.Context, in reactive.State) (any, error) {
			site, err := decodeSite(in)
			if err != nil {
				return nil, err
			}
			return chart.Option(chart.NewPie(aggregate.Pie(t, site)))
		})
	if err != nil {
		return err
	}

	return g.Register(ScatterOutput, []reactive.Dependency{SiteInput, PayloadInput},
		func(ctx context.Context, in reactive.State) (any, error) {
			site, err := decodeSite(in)
			if err != nil {
				return nil, err
			}
			rng, err := decodeRange(in, bounds)
			if err != nil {
				return nil, err
			}
			return chart.Option(chart.NewScatter(aggregate.Scatter(t, site, rng)))
		})
}

// errBadInput marks control values that cannot be decoded.
var errBadInput = errors.New("bad input value")

func decodeSite(in reactive.State) (aggregate.Site, error) {
	var s string
	if err := in.Decode(SiteInput, &s); err != nil {
		return "", errors.Mark(err, errBadInput)
	}
	return aggregate.Site(s), nil
}

func decodeRange(in reactive.State, bounds aggregate.Bounds) (aggregate.PayloadRange, error) {
	var v []float64
	if err := in.Decode(PayloadInput, &v); err != nil {
		return aggregate.PayloadRange{}, errors.Mark(err, errBadInput)
	}
	if len(v) != 2 {
		return aggregate.PayloadRange{}, errors.Mark(errors.Newf("%s wants [low, high], got %d values", PayloadInput, len(v)), errBadInput)
	}
	rng, err := aggregate.NewPayloadRange(v[0], v[1])
	if err != nil {
		return aggregate.PayloadRange{}, err
	}
	return bounds.Clamp(rng), nil
}
