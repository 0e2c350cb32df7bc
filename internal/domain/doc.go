// Package domain models COVID-19 case counts and the series reshaping used by
// the dashboard charts.
//
// # Data Source
//
// Case data comes from a single flat CSV (by default the Levitt lab mirror of
// the JHU data at https://levitt-covid19-data.s3-us-west-1.amazonaws.com/).
// Each row is one observation:
//
//	Country/Region, Province/State, County, Date, Case_Type, Cases
//	"US",           "New York",     "Kings", 21-03-2020, Confirmed, 1272
//
// Dates are day-first (DD-MM-YYYY). Cases are cumulative integer counts.
// Province and County are empty for country-level rows.
//
// # Region Granularity
//
// Region names are overloaded across three granularities (country, province,
// county) with no enforced hierarchy: "Georgia" is both a country and a US
// state. Extraction therefore runs under an explicit [MatchPolicy]:
//
//	MatchPrecedence: country rows win, then province rows, then county rows.
//	                 Rows of the winning level are summed per date.
//	MatchLegacy:     any field may match; rows are summed per date only when
//	                 there are more matching rows than dates on the axis.
//
// # Date Axis
//
// The date axis is the sorted, deduplicated set of dates in the dataset. Every
// extracted series is aligned to it and has exactly one value per axis date.
// Dates before a region's first report read as zero ("no cases reported yet").
//
// # Transforms
//
// Transforms are pure functions on a [Series]:
//
//	Window:      positional slice with clamping, never fails.
//	Smooth:      LOWESS, local linear fit with tricube weights, no robustifying passes.
//	Log:         natural log. Zero gives -Inf and negatives give NaN; callers own this.
//	ChangeRatio: (s[i]-s[i-1])/s[i-1], 0 when the previous value is 0, r[0] = 0.
//
// # Population
//
// The per-capita map joins country series with a population table. Population
// files use UN country names, which are mapped onto the case-data names with
// [NormalizeCountry] (e.g. "Viet Nam" -> "Vietnam").
package domain
