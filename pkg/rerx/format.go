package rerx

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// placeholderSentinels are form-filler strings that must never reach the
// document. Comparison is case-insensitive after stripping punctuation, so
// "N/A", "n.a." and "NA" all match.
var placeholderSentinels = map[string]bool{
	"NA": true, "NONE": true, "UNKNOWN": true, "TBD": true,
	"PENDING": true, "XX": true, "XXX": true, "NULL": true,
	"NOTAVAILABLE": true, "NOTAPPLICABLE": true,
}

// asciiFold decomposes accented characters and drops the combining marks,
// mapping e.g. "Muñoz" to "Munoz". The wire format accepts ASCII only.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPlaceholder reports whether s is a sentinel like "N/A" or "UNKNOWN"
// rather than a real value. Empty strings are not placeholders; they are a
// valid "no value".
func IsPlaceholder(s string) bool {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return placeholderSentinels[b.String()]
}

// CleanText normalizes free text for the document: trims, collapses inner
// whitespace, folds to ASCII and rejects placeholder sentinels to "".
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || IsPlaceholder(s) {
		return ""
	}
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	// Anything still outside printable ASCII is dropped.
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// FormatPhone reduces a phone number to its digits, dropping a leading
// US country code so "+1 (212) 555-0100" becomes "2125550100".
func FormatPhone(s string) string {
	d := Digits(s)
	if len(d) == 11 && strings.HasPrefix(d, "1") {
		d = d[1:]
	}
	return d
}

// FormatZIP normalizes a ZIP code to 5 or 9 digits; anything else is
// returned digit-stripped as-is and left to preflight to flag.
func FormatZIP(s string) string {
	d := Digits(s)
	if len(d) > 9 {
		return d[:9]
	}
	return d
}

// stateToCountry covers the common case of a blank country with a US state.
var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "DC": true, "FL": true, "GA": true, "HI": true,
	"ID": true, "IL": true, "IN": true, "IA": true, "KS": true, "KY": true,
	"LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true,
	"MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true,
	"NJ": true, "NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "PR": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true,
	"VI": true, "WA": true, "WV": true, "WI": true, "WY": true,
}

// countryAliases maps common spellings to ISO-3166 alpha-2.
var countryAliases = map[string]string{
	"USA": "US", "UNITED STATES": "US", "UNITED STATES OF AMERICA": "US",
	"U.S.": "US", "U.S.A.": "US", "CAN": "CA", "CANADA": "CA",
	"MEX": "MX", "MEXICO": "MX", "UK": "GB", "UNITED KINGDOM": "GB",
	"GREAT BRITAIN": "GB",
}

// NormalizeCountry maps a country string to ISO-3166 alpha-2. A blank
// country with a recognized US state defaults to "US"; an unknown longer
// value is truncated to its first two letters uppercased.
func NormalizeCountry(country, state string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	if c == "" {
		if usStates[NormalizeState(state)] {
			return "US"
		}
		return ""
	}
	if alias, ok := countryAliases[c]; ok {
		return alias
	}
	if len(c) == 2 {
		return c
	}
	var letters []rune
	for _, r := range c {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	if len(letters) >= 2 {
		return string(letters[:2])
	}
	return ""
}

// NormalizeState uppercases and trims a state/province code.
func NormalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsUSState reports whether code is a recognized US state or territory code.
func IsUSState(code string) bool {
	return usStates[NormalizeState(code)]
}
