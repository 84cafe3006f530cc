// Package domain models Finnish drug-related KPI statistics and the
// region analytics that every dashboard view is built from.
//
// # Data Sources
//
// All inputs are static files prepared upstream: cleaned statistics tables
// (CSV, optionally XLSX) and a GeoJSON boundary file for the 19 Finnish
// regions (maakunnat). Forecast tables are produced by an offline model and
// consumed as-is; nothing in this package fits or re-fits a model.
//
// # Region Naming
//
// The same closed set of 19 regions is spelled two ways:
//
//	English  (Convention A)  used by the boundary file, e.g. "Finland Proper"
//	Finnish  (Convention B)  used by the statistics tables, e.g. "Varsinais-Suomi"
//
// Six regions are spelled identically in both (Uusimaa, Satakunta, Pirkanmaa,
// Päijät-Häme, Kymenlaakso, Kainuu). [Translate] is a total bijection over
// the set; any other name is a miss, reported as ok=false rather than an error.
//
// # Table Layouts
//
// Wide form (one column per region, one row per period):
//
//	year,Uusimaa,Varsinais-Suomi,...,KOKO MAA
//	2020,5,3,...,40
//
// Long form (one row per period and region) is produced by [ReshapeWideToLong].
// Columns not listed as id or value columns (row indexes, the national
// "KOKO MAA" total) are ignored.
//
// Forecast form (long, one row per period, region and kind):
//
//	year,region,type,arrests,arrests_lower,arrests_upper
//	2023-01-01,Uusimaa,Actual,1520,,
//	2025-01-01,Uusimaa,Prediction,1610,1490,1730
//
// Kinds other than "Actual" and "Prediction" are skipped. Bounds are
// optional; when present they must satisfy lower <= value <= upper.
//
// # Periods
//
// A period is a calendar year, optionally narrowed to a month. The parser
// accepts "2023", "2023-04" and full dates; a full date ("2023-01-01") is an
// annual observation stamped on its first day, so only its year is kept.
//
// # Choropleth Rendering
//
// Values are shaded on a linear scale across five red hues, lightest at the
// minimum joined value and darkest at the maximum. Regions without data are
// drawn with a transparent fill so the map always covers every boundary.
package domain
