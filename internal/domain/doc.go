// Package domain models numerical weather prediction grid data published by the
// Japan Meteorological Agency (JMA) and the relational rows derived from it.
//
// # Data Source
//
// JMA publishes Grid Point Value (GPV) samples of its Global Spectral Model as a
// ZIP archive at https://www.data.jma.go.jp/developer/gpv_sample/. Each archive
// member is a GRIB2 file named after the cycle and lead time, e.g.
//
//	Z__C_RJTD_20171205000000_GSM_GPV_Rgl_FD0006_grib2.bin
//	= 2017-12-05 00 UTC cycle, forecast day 00 hour 06, global 1.0 degree grid.
//
// A file mixes messages for several level types, step types and grids, so the
// decoder is always invoked with a [Filter] (e.g. stepType=instant,
// numberOfPoints=65160 keeps the instantaneous 360x181 isobaric fields).
//
// # Grid Conventions
//
// A [Dataset] holds one level type (isobaricInhPa for the GSM sample), one base
// time and one step. Every level field stores Nj*Ni values in scan order:
// latitude outer (north to south when jScansPositively is 0), longitude inner.
// Variables use ecCodes short names:
//
//	t      temperature [K]
//	u, v   eastward / northward wind component [m/s]
//	2t     2 metre temperature [K]
//	10u    10 metre eastward wind [m/s]
//	10v    10 metre northward wind [m/s]
//	dswrf  downward short-wave radiation flux [W m-2]
//
// Missing grid points are NaN.
//
// # Derived Quantities
//
// Temperature is converted with T_C = T_K - 273.15. Wind speed is hypot(u, v).
// Wind direction is the meteorological bearing the wind blows from,
// (270 - atan2(v, u) in degrees) mod 360, so a pure westerly (u > 0, v = 0)
// reads 270. See [WindDirection].
//
// # Forecast Times
//
// run_time is the cycle origin (dataDate/dataTime). forecast_time is the
// validity time: validityDate/validityTime when the backend reports it,
// otherwise run_time plus the step. Rows fall back to the current instant
// when the dataset carries no time coordinate at all. See [MapForecasts].
package domain
