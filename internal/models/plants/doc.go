// Package plants grows canopy leaf area with a logistic curve whose rate is
// limited by soil moisture and incoming shortwave radiation.
//
// Consumes soil_moisture (hydrology) and downward_shortwave_radiation
// (external). Produces leaf_area_index and layer_heights over the vertical
// stack, plus the per-cell evapotranspiration and litter_fall fluxes. The
// layer heights are written during initialisation so the microclimate can
// interpolate over them on its first pass.
package plants
