package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Column headers read from the launch CSV.
const (
	ColLaunchSite     = "Launch Site"
	ColClass          = "class"
	ColPayloadMass    = "Payload Mass (kg)"
	ColBoosterVersion = "Booster Version"
	ColFlightNumber   = "Flight Number"
	ColOrbit          = "Orbit"
)

var requiredColumns = []string{ColLaunchSite, ColClass, ColPayloadMass, ColBoosterVersion}

// ErrMalformed marks a CSV that cannot be turned into a Table.
var ErrMalformed = errors.New("malformed launch dataset")

// Parse reads a launch CSV with a header row. Either every row parses or
// Parse fails; there is no partial result.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Mark(errors.New("empty input, no header row"), ErrMalformed)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), ErrMalformed)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, errors.Mark(errors.Newf("missing column %q", name), ErrMalformed)
		}
	}
	flightCol, hasFlight := cols[ColFlightNumber]
	orbitCol, hasOrbit := cols[ColOrbit]

	var records []LaunchRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read row"), ErrMalformed)
		}
		line, _ := cr.FieldPos(0)

		rec := LaunchRecord{
			LaunchSite:     strings.TrimSpace(row[cols[ColLaunchSite]]),
			BoosterVersion: strings.TrimSpace(row[cols[ColBoosterVersion]]),
		}

		rec.Class, err = parseClass(row[cols[ColClass]])
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "line %d", line), ErrMalformed)
		}
		rec.PayloadMassKg, rec.HasPayload, err = parsePayload(row[cols[ColPayloadMass]])
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "line %d", line), ErrMalformed)
		}
		if hasFlight {
			// Flight numbers are informational; a blank one is not an error.
			rec.FlightNumber, _ = strconv.Atoi(strings.TrimSpace(row[flightCol]))
		}
		if hasOrbit {
			rec.Orbit = strings.TrimSpace(row[orbitCol])
		}
		records = append(records, rec)
	}

	return New(records), nil
}

func parseClass(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Newf("class %q is not a number", s)
	}
	switch v {
	case Failure:
		return Failure, nil
	case Success:
		return Success, nil
	}
	return 0, errors.Newf("class %q is neither 0 nor 1", s)
}

func parsePayload(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.Newf("payload mass %q is not a number", s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if v < 0 || math.IsInf(v, 0) {
		return 0, false, errors.Newf("payload mass %q out of range", s)
	}
	return v, true, nil
}
