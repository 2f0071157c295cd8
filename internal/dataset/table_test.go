package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SitesFirstSeenOrder(t *testing.T) {
	tbl := New([]LaunchRecord{
		{LaunchSite: "B"},
		{LaunchSite: "A"},
		{LaunchSite: ""},
		{LaunchSite: "B"},
		{LaunchSite: "C"},
	})

	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t, []string{"B", "A", "C"}, tbl.Sites())
	assert.True(t, tbl.HasSite("A"))
	assert.False(t, tbl.HasSite(""))
	assert.False(t, tbl.HasSite("D"))
}

func TestNew_CopiesInput(t *testing.T) {
	in := []LaunchRecord{{LaunchSite: "A", Class: Success}}
	tbl := New(in)
	in[0].LaunchSite = "Z"

	assert.Equal(t, "A", tbl.At(0).LaunchSite)

	sites := tbl.Sites()
	sites[0] = "mutated"
	assert.Equal(t, []string{"A"}, tbl.Sites())
}

func TestTable_All(t *testing.T) {
	tbl := New([]LaunchRecord{{LaunchSite: "A"}, {LaunchSite: "B"}, {LaunchSite: "C"}})

	var seen []string
	for r := range tbl.All() {
		seen = append(seen, r.LaunchSite)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestTable_PayloadBounds(t *testing.T) {
	tbl := New([]LaunchRecord{
		{PayloadMassKg: 0, HasPayload: false},
		{PayloadMassKg: 3000, HasPayload: true},
		{PayloadMassKg: 500, HasPayload: true},
		{PayloadMassKg: 9600, HasPayload: true},
	})
	lo, hi, ok := tbl.PayloadBounds()
	assert.True(t, ok)
	assert.Equal(t, 500.0, lo)
	assert.Equal(t, 9600.0, hi)

	_, _, ok = New(nil).PayloadBounds()
	assert.False(t, ok)
}
