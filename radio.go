package logalign

import "time"

// NormalizeRadio converts radio observations into columnar form.
//
// Nothing is resampled, filtered, deduplicated or reordered: repeated
// sightings of one device are distinct points of its time series.
func NormalizeRadio(kind SensorKind, obs []RadioObservation, loc *time.Location) *RadioTable {
	t := &RadioTable{
		Kind:        kind,
		Unix:        make([]float64, len(obs)),
		Identifiers: make([]string, len(obs)),
		RSSI:        make([]int8, len(obs)),
	}
	for i, o := range obs {
		t.Unix[i] = o.Timestamp
		t.Identifiers[i] = o.Identifier
		t.RSSI[i] = o.RSSI
	}
	t.Times = LocalTimes(t.Unix, loc)
	return t
}
