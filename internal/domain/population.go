package domain

// countrySynonyms maps UN population-table names onto case-data names.
var countrySynonyms = map[string]string{
	"United States of America":           "US",
	"Congo":                              "Congo (Brazzaville)",
	"Democratic Republic of the Congo":   "Congo (Kinshasa)",
	"Iran (Islamic Republic of)":         "Iran",
	"Brunei Darussalam":                  "Brunei",
	"China, Taiwan Province of China":    "Taiwan*",
	"United Republic of Tanzania":        "Tanzania",
	"Republic of Moldova":                "Moldova",
	"Bahamas":                            "Bahamas, The",
	"Venezuela (Bolivarian Republic of)": "Venezuela",
	"Russian Federation":                 "Russia",
	"Viet Nam":                           "Vietnam",
	"Bolivia (Plurinational State of)":   "Bolivia",
	"Gambia":                             "Gambia, The",
	"Republic of Korea":                  "Korea, South",
	"Syrian Arab Republic":               "Syria",
	"Cabo Verde":                         "Cape Verde",
}

// ignoredCountries are duplicated or non-country entries in the case data.
// Timor-Leste and Cape Verde carry the official figures; "East Timor" and
// "Cabo Verde" duplicate them.
var ignoredCountries = map[string]struct{}{
	"East Timor":  {},
	"Cabo Verde":  {},
	"Cruise Ship": {},
}

// NormalizeCountry maps a population-table country name onto the name used by
// the case data.
func NormalizeCountry(name string) string {
	if s, ok := countrySynonyms[name]; ok {
		return s
	}
	return name
}

// IgnoredCountry reports whether a case-data country is excluded from the map.
func IgnoredCountry(name string) bool {
	_, ok := ignoredCountries[name]
	return ok
}
