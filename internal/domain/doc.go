// Package domain models U.S. county-level COVID-19 time series and the
// statistics derived from them.
//
// # Data Source
//
// Case and death counts come from two pre-published CSV files derived from the
// Johns Hopkins CSSE "time_series_covid19_{confirmed,deaths}_US" tables. Each
// file holds one row per county and one column per reporting date. County
// boundaries come from a zipped shapefile keyed by the FIPS_BEA attribute.
//
// # Source Conventions
//
// Column names:
//
//	Headers are lower-cased on load. "combined_key" ("Autauga, Alabama, US")
//	becomes "county_state". The state column is "state" in the published files
//	and "province_state" in the raw JHU export; either is accepted.
//
// Date columns:
//
//	Headers are U.S.-style dates, "1/22/20" = January 22, 2020. Four-digit years
//	and ISO dates ("2020-01-22") are accepted too. A header that is neither an
//	identifier nor a date is a schema defect, see [ErrMalformedDateColumn].
//
// Counts:
//
//	Values are cumulative as of the column date, never daily increments.
//	Daily figures are first differences within one county's series; the first
//	date of a county has no difference (see [Delta]).
//
// FIPS codes:
//
//	The deaths file carries county FIPS codes as floats ("1001.0"), the
//	shapefile as integers or zero-padded strings ("01001"). Both sides are
//	compared as integers, see [FIPSKey].
//
// # Pipeline
//
// Tables flow strictly forward: the loader produces wide frames, [MeltCases]
// and [MeltDeaths] reshape them, [Merge] joins them into a [MergedTable], and
// [ComputeYearStats], [BuildReport] and [BuildChoropleth] derive read-only
// views. Failures carry the stage that produced them, see [StageError].
package domain
