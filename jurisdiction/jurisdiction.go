// Package jurisdiction maps free-form country labels to canonical ISO 3166-1
// codes. The attestation payload carries the numeric code; the consumption
// ledger keys identities under the alpha-3 code.
package jurisdiction

import "strings"

// Info is the canonical identification of a jurisdiction.
type Info struct {
	Alpha3  string
	Numeric uint16
	Name    string
}

// Jurisdictions currently supported by the verification flow. Lookup keys are
// folded labels: alpha-2, alpha-3, and the common English name all resolve.
var byLabel = map[string]Info{}

var all = []Info{
	{"NGA", 566, "Nigeria"},
	{"GHA", 288, "Ghana"},
	{"KEN", 404, "Kenya"},
	{"ZAF", 710, "South Africa"},
	{"EGY", 818, "Egypt"},
	{"USA", 840, "United States"},
	{"GBR", 826, "United Kingdom"},
	{"DEU", 276, "Germany"},
	{"FRA", 250, "France"},
	{"IND", 356, "India"},
	{"BRA", 76, "Brazil"},
	{"PHL", 608, "Philippines"},
}

var alpha2 = map[string]string{
	"NG": "NGA", "GH": "GHA", "KE": "KEN", "ZA": "ZAF", "EG": "EGY",
	"US": "USA", "GB": "GBR", "DE": "DEU", "FR": "FRA", "IN": "IND",
	"BR": "BRA", "PH": "PHL",
}

func init() {
	for _, info := range all {
		byLabel[info.Alpha3] = info
		byLabel[Fold(info.Name)] = info
	}
	for a2, a3 := range alpha2 {
		byLabel[a2] = byLabel[a3]
	}
}

// Fold normalizes a label for lookup: trimmed, upper-cased, inner whitespace
// collapsed to single spaces.
func Fold(label string) string {
	return strings.ToUpper(strings.Join(strings.Fields(label), " "))
}

// Resolve maps a country label to its jurisdiction info. The second return is
// false when the label is not recognized; callers that proceed anyway must use
// Fold(label) as a best-effort key and treat results accordingly.
func Resolve(label string) (Info, bool) {
	info, ok := byLabel[Fold(label)]
	return info, ok
}
