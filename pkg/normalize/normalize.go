package normalize

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// MetroVehicleType is the canonical token for every rail-variant service type
const MetroVehicleType = "METRO"

// vehicleTypeAliases maps source-specific vehicle type tokens to the canonical taxonomy.
// Tokens not listed here pass through unchanged.
var vehicleTypeAliases = map[string]string{
	"RAIL": MetroVehicleType, // live tracking records report metro services as RAIL
}

// NormalizeVehicleType maps a raw vehicle/service type token onto the canonical taxonomy
// used by static feed route modes. It never fails.
func NormalizeVehicleType(raw string) string {
	if canonical, ok := vehicleTypeAliases[raw]; ok {
		return canonical
	}
	return raw
}

// SameVehicleType reports whether two tokens name the same service type after normalization
func SameVehicleType(a, b string) bool {
	return NormalizeVehicleType(a) == NormalizeVehicleType(b)
}

// CleanIdentifier URL-decodes an identifier and strips any feed qualification
// ("feed:code" becomes "code"). Values that fail to decode are used as-is.
//
// Decoding and stripping repeat until the value stops changing, so the result is
// a fixed point: CleanIdentifier(CleanIdentifier(x)) == CleanIdentifier(x).
func CleanIdentifier(raw string) string {
	id := raw
	for {
		next := stripFeedPrefix(unescape(id))
		if next == id {
			return id
		}
		id = next
	}
}

// unescape decodes percent-escapes, falling back to the input when it is malformed
// or decodes to invalid UTF-8
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil || !utf8.ValidString(decoded) {
		return s
	}
	return decoded
}

// stripFeedPrefix returns the part after the final colon, if any
func stripFeedPrefix(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
