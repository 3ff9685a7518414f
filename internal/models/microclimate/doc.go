// Package microclimate fans the externally supplied reference climate out
// over the vertical layer stack.
//
// Consumes:
//   - air_temperature_ref, relative_humidity_ref, atmospheric_pressure_ref,
//     atmospheric_co2_ref, mean_annual_temperature (external)
//   - leaf_area_index, layer_heights (plants)
//
// Produces the layered profiles:
//   - air_temperature, relative_humidity, vapour_pressure_deficit
//   - atmospheric_pressure, atmospheric_co2
//   - soil_temperature
//
// Above-ground rows of soil_temperature and soil rows of the atmospheric
// profiles hold NaN.
package microclimate
