package domain

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Direction selects the naming convention a region name is translated into.
type Direction int

const (
	// EnglishToFinnish maps boundary-file names onto statistics-table names.
	EnglishToFinnish Direction = iota
	// FinnishToEnglish maps statistics-table names onto boundary-file names.
	FinnishToEnglish
)

func (d Direction) String() string {
	switch d {
	case EnglishToFinnish:
		return "en-fi"
	case FinnishToEnglish:
		return "fi-en"
	default:
		return "unknown"
	}
}

// ParseDirection accepts the short forms used in query strings.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en-fi", "english-finnish":
		return EnglishToFinnish, true
	case "fi-en", "finnish-english":
		return FinnishToEnglish, true
	default:
		return 0, false
	}
}

// Region pairs the two spellings of one Finnish region.
type Region struct {
	English string `json:"english"`
	Finnish string `json:"finnish"`
}

// regions is the fixed reference set, in the order statistics tables list them.
var regions = [...]Region{
	{English: "Uusimaa", Finnish: "Uusimaa"},
	{English: "Finland Proper", Finnish: "Varsinais-Suomi"},
	{English: "Satakunta", Finnish: "Satakunta"},
	{English: "Tavastia Proper", Finnish: "Kanta-Häme"},
	{English: "Pirkanmaa", Finnish: "Pirkanmaa"},
	{English: "Päijät-Häme", Finnish: "Päijät-Häme"},
	{English: "Kymenlaakso", Finnish: "Kymenlaakso"},
	{English: "South Karelia", Finnish: "Etelä-Karjala"},
	{English: "Southern Savonia", Finnish: "Etelä-Savo"},
	{English: "Northern Savonia", Finnish: "Pohjois-Savo"},
	{English: "North Karelia", Finnish: "Pohjois-Karjala"},
	{English: "Central Finland", Finnish: "Keski-Suomi"},
	{English: "Southern Ostrobothnia", Finnish: "Etelä-Pohjanmaa"},
	{English: "Ostrobothnia", Finnish: "Pohjanmaa"},
	{English: "Central Ostrobothnia", Finnish: "Keski-Pohjanmaa"},
	{English: "Northern Ostrobothnia", Finnish: "Pohjois-Pohjanmaa"},
	{English: "Kainuu", Finnish: "Kainuu"},
	{English: "Lapland", Finnish: "Lappi"},
	{English: "Åland", Finnish: "Ahvenanmaa"},
}

// Lookup tables are derived once from regions and never written afterwards,
// so concurrent reads need no locking.
var (
	englishToFinnish = make(map[string]string, len(regions))
	finnishToEnglish = make(map[string]string, len(regions))
	foldedNames      = make(map[string]Region, 2*len(regions))
)

func init() {
	for _, r := range regions {
		englishToFinnish[r.English] = r.Finnish
		finnishToEnglish[r.Finnish] = r.English
		foldedNames[foldName(r.English)] = r
		foldedNames[foldName(r.Finnish)] = r
	}
}

// Translate returns the name of a region in the target convention.
// ok is false when name is not one of the 19 known regions in the source
// convention; callers treat that as "no data" rather than a failure.
func Translate(name string, dir Direction) (string, bool) {
	var out string
	var ok bool
	switch dir {
	case EnglishToFinnish:
		out, ok = englishToFinnish[name]
	case FinnishToEnglish:
		out, ok = finnishToEnglish[name]
	}
	return out, ok
}

// Regions returns a copy of the reference set in table order.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions[:])
	return out
}

// FinnishRegionNames lists the Finnish names in table order; these are the
// value columns of the wide usage tables.
func FinnishRegionNames() []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.Finnish
	}
	return out
}

// ResolveRegion matches free-form user input against either convention,
// ignoring case, diacritics and surrounding whitespace ("paijat-hame",
// "ALAND", "lappi").
func ResolveRegion(query string) (Region, bool) {
	if strings.TrimSpace(query) == "" {
		return Region{}, false
	}
	r, ok := foldedNames[foldName(query)]
	return r, ok
}

// RegionChoices returns the unique names sorted alphabetically with Uusimaa,
// the capital region, always first when present.
func RegionChoices(names []string) []string {
	out := lo.Uniq(lo.Without(names, capitalRegion))
	sort.Strings(out)
	if lo.Contains(names, capitalRegion) {
		out = append([]string{capitalRegion}, out...)
	}
	return out
}

const capitalRegion = "Uusimaa"

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
