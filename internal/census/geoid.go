// Package census retrieves boundary polygons from TIGERweb and tabular
// estimates from the ACS API, and joins them on the composite GEOID.
package census

import "strings"

// GEOID component widths: 2-digit state + 3-digit county + 6-digit tract,
// optionally followed by the 1-digit block group. Codes are built by
// zero-padding each component to its fixed width and concatenating with no
// separator; a padding mismatch on either side of a join fails silently, so
// every code goes through these helpers.
const (
	stateWidth  = 2
	countyWidth = 3
	tractWidth  = 6

	// TractGEOIDLen is the length of a tract-level GEOID.
	TractGEOIDLen = stateWidth + countyWidth + tractWidth
)

// TractGEOID builds the 11-character tract GEOID.
func TractGEOID(state, county, tract string) string {
	return zfill(state, stateWidth) + zfill(county, countyWidth) + zfill(tract, tractWidth)
}

// BlockGroupGEOID builds the 12-character block-group GEOID.
func BlockGroupGEOID(state, county, tract, blockGroup string) string {
	return TractGEOID(state, county, tract) + strings.TrimSpace(blockGroup)
}

// zfill left-pads s with zeros to width. Inputs already at or beyond the
// width are returned unchanged.
func zfill(s string, width int) string {
	s = strings.TrimSpace(s)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
