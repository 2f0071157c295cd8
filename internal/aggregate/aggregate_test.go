package aggregate

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchdash/internal/dataset"
)

func rec(site string, class int, mass float64, booster string) dataset.LaunchRecord {
	return dataset.LaunchRecord{LaunchSite: site, Class: class, PayloadMassKg: mass, HasPayload: true, BoosterVersion: booster}
}

func noMass(site string, class int, booster string) dataset.LaunchRecord {
	return dataset.LaunchRecord{LaunchSite: site, Class: class, BoosterVersion: booster}
}

func fixture() *dataset.Table {
	return dataset.New([]dataset.LaunchRecord{
		rec("CCAFS LC-40", 0, 0, "v1.0"),
		rec("CCAFS LC-40", 1, 2500, "FT"),
		rec("VAFB SLC-4E", 1, 9600, "B4"),
		noMass("KSC LC-39A", 1, "FT"),
		rec("KSC LC-39A", 0, 5300, "B5"),
		rec("CCAFS SLC-40", 1, 10000, "B5"),
		rec("CCAFS LC-40", 1, 7000, "v1.1"),
		noMass("", 1, "B5"),
	})
}

func TestPie_AllSitesCountsSuccesses(t *testing.T) {
	tbl := dataset.New([]dataset.LaunchRecord{
		rec("siteA", 1, 1, "b"),
		rec("siteA", 0, 1, "b"),
		rec("siteB", 1, 1, "b"),
	})

	got := Pie(tbl, AllSites)

	want := PieData{
		Title:  "Success Counts for All Launch Sites",
		Slices: []Slice{{Label: "siteA", Value: 1}, {Label: "siteB", Value: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Pie(ALL) mismatch (-want +got):\n%s", diff)
	}
}

func TestPie_SingleSiteCountsPerClass(t *testing.T) {
	tbl := dataset.New([]dataset.LaunchRecord{
		rec("siteA", 1, 1, "b"),
		rec("siteA", 0, 1, "b"),
		rec("siteB", 1, 1, "b"),
	})

	got := Pie(tbl, "siteA")

	want := PieData{
		Title:  "Success Counts for siteA",
		Slices: []Slice{{Label: "0", Value: 1}, {Label: "1", Value: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Pie(siteA) mismatch (-want +got):\n%s", diff)
	}
}

func TestPie_AllSitesTotalEqualsSuccesses(t *testing.T) {
	tbl := fixture()
	successes := 0
	for r := range tbl.All() {
		if r.LaunchSite != "" && r.Class == dataset.Success {
			successes++
		}
	}

	got := Pie(tbl, AllSites)
	assert.Equal(t, successes, got.Total())
	assert.Len(t, got.Slices, len(tbl.Sites()))
	for i, s := range tbl.Sites() {
		assert.Equal(t, s, got.Slices[i].Label)
	}
}

func TestPie_SiteWithoutSuccessesKeepsSlice(t *testing.T) {
	tbl := dataset.New([]dataset.LaunchRecord{rec("A", 0, 1, "b"), rec("B", 1, 1, "b")})
	got := Pie(tbl, AllSites)
	assert.Equal(t, []Slice{{Label: "A", Value: 0}, {Label: "B", Value: 1}}, got.Slices)
}

func TestPie_OnlyPresentClasses(t *testing.T) {
	got := Pie(fixture(), "VAFB SLC-4E")
	assert.Equal(t, []Slice{{Label: "1", Value: 1}}, got.Slices)
}

func TestPie_UnknownOrEmpty(t *testing.T) {
	got := Pie(fixture(), "Boca Chica")
	assert.Equal(t, "Success Counts for Boca Chica", got.Title)
	assert.Empty(t, got.Slices)

	got = Pie(fixture(), "")
	assert.Empty(t, got.Slices, "records without a site are not grouped")

	got = Pie(dataset.New(nil), AllSites)
	assert.Empty(t, got.Slices)
}

func TestPie_IncludesRecordsWithoutPayload(t *testing.T) {
	got := Pie(fixture(), "KSC LC-39A")
	assert.Equal(t, []Slice{{Label: "0", Value: 1}, {Label: "1", Value: 1}}, got.Slices)
}

func TestScatter_AllSitesFullRange(t *testing.T) {
	tbl := fixture()
	got := Scatter(tbl, AllSites, DefaultBounds.Full())

	assert.Equal(t, "Payload Success Rate for All Sites", got.Title)
	withMass := 0
	for r := range tbl.All() {
		if r.HasPayload {
			withMass++
		}
	}
	assert.Len(t, got.Points, withMass)
	assert.Equal(t, []string{"v1.0", "FT", "B4", "B5", "v1.1"}, got.Categories)
	assert.Equal(t, []string{"Failure", "Success"}, got.YLabels)
}

func TestScatter_RangeIsInclusive(t *testing.T) {
	rng, err := NewPayloadRange(2500, 7000)
	require.NoError(t, err)

	got := Scatter(fixture(), AllSites, rng)

	want := []Point{
		{X: 2500, Y: 1, Category: "FT"},
		{X: 5300, Y: 0, Category: "B5"},
		{X: 7000, Y: 1, Category: "v1.1"},
	}
	if diff := cmp.Diff(want, got.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	for _, p := range got.Points {
		assert.True(t, rng.Contains(p.X))
	}
}

func TestScatter_SingleSite(t *testing.T) {
	got := Scatter(fixture(), "CCAFS LC-40", DefaultBounds.Full())
	assert.Equal(t, "Payload Success Rate for CCAFS LC-40", got.Title)
	assert.Equal(t, []Point{
		{X: 0, Y: 0, Category: "v1.0"},
		{X: 2500, Y: 1, Category: "FT"},
		{X: 7000, Y: 1, Category: "v1.1"},
	}, got.Points)
}

func TestScatter_MissingPayloadNeverMatches(t *testing.T) {
	tbl := dataset.New([]dataset.LaunchRecord{noMass("A", 1, "b"), noMass("A", 0, "b")})
	got := Scatter(tbl, AllSites, PayloadRange{Low: -1e9, High: 1e9})
	assert.Empty(t, got.Points)
	assert.Empty(t, got.Categories)
}

func TestScatter_UnknownSite(t *testing.T) {
	got := Scatter(fixture(), "Boca Chica", DefaultBounds.Full())
	assert.Equal(t, "Payload Success Rate for Boca Chica", got.Title)
	assert.Empty(t, got.Points)
	assert.Empty(t, got.Categories)
	assert.Equal(t, []string{"Failure", "Success"}, got.YLabels)

	got = Scatter(fixture(), "", DefaultBounds.Full())
	assert.Empty(t, got.Points, "records without a site are not grouped")
}

func TestScatter_EmptyRangeLeavesPieUntouched(t *testing.T) {
	tbl := fixture()
	rng, err := NewPayloadRange(3000, 4000)
	require.NoError(t, err)

	scatter := Scatter(tbl, "VAFB SLC-4E", rng)
	assert.Empty(t, scatter.Points)

	pie := Pie(tbl, "VAFB SLC-4E")
	assert.Equal(t, []Slice{{Label: "1", Value: 1}}, pie.Slices)
}

func TestAggregations_Idempotent(t *testing.T) {
	tbl := fixture()
	rng := PayloadRange{Low: 0, High: 8000}

	for _, site := range []Site{AllSites, "CCAFS LC-40", "nowhere"} {
		if diff := cmp.Diff(Pie(tbl, site), Pie(tbl, site)); diff != "" {
			t.Errorf("Pie(%s) not idempotent:\n%s", site, diff)
		}
		if diff := cmp.Diff(Scatter(tbl, site, rng), Scatter(tbl, site, rng)); diff != "" {
			t.Errorf("Scatter(%s) not idempotent:\n%s", site, diff)
		}
	}
}

func TestNewPayloadRange(t *testing.T) {
	r, err := NewPayloadRange(1000, 1000)
	require.NoError(t, err)
	assert.True(t, r.Contains(1000))
	assert.False(t, r.Contains(999.9))

	_, err = NewPayloadRange(5000, 4000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = NewPayloadRange(math.NaN(), 5000)
	assert.True(t, errors.Is(err, ErrInvalidRange), "NaN low: %v", err)
	_, err = NewPayloadRange(0, math.NaN())
	assert.True(t, errors.Is(err, ErrInvalidRange), "NaN high: %v", err)
}

func TestBounds(t *testing.T) {
	b := DefaultBounds
	require.NoError(t, b.Validate())

	assert.Equal(t, PayloadRange{Low: 0, High: 10000}, b.Clamp(PayloadRange{Low: -500, High: 15600}))
	assert.Equal(t, PayloadRange{Low: 2000, High: 3000}, b.Clamp(PayloadRange{Low: 2000, High: 3000}))
	assert.Equal(t, []float64{0, 1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000}, b.Marks())

	tenths := Bounds{Min: 0, Max: 1, Step: 0.1}.Marks()
	require.Len(t, tenths, 11)
	assert.Equal(t, 1.0, tenths[10])
	assert.InDelta(t, 0.3, tenths[3], 1e-12)

	assert.Equal(t, []float64{0, 400, 800}, Bounds{Min: 0, Max: 1000, Step: 400}.Marks())
	assert.Equal(t, []float64{10, 0}, Bounds{Min: 10, Max: 0, Step: 1}.Marks())

	assert.Error(t, Bounds{Min: 10, Max: 10, Step: 1}.Validate())
	assert.Error(t, Bounds{Min: 0, Max: 10, Step: 0}.Validate())
}

func TestDefaultRange(t *testing.T) {
	got := DefaultRange(fixture(), DefaultBounds)
	assert.Equal(t, PayloadRange{Low: 0, High: 10000}, got)

	tbl := dataset.New([]dataset.LaunchRecord{rec("A", 1, 500, "b"), rec("A", 1, 15600, "b")})
	assert.Equal(t, PayloadRange{Low: 500, High: 10000}, DefaultRange(tbl, DefaultBounds))

	assert.Equal(t, DefaultBounds.Full(), DefaultRange(dataset.New(nil), DefaultBounds))
}

func TestSite(t *testing.T) {
	assert.True(t, AllSites.IsAll())
	assert.Equal(t, "All Sites", AllSites.Label())
	assert.Equal(t, "KSC LC-39A", Site("KSC LC-39A").Label())
}
