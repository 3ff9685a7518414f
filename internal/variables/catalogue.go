package variables

// Standard returns the catalogue for the shipped model set. Reference
// climate enters externally at a single height; the microclimate model fans
// it out over the vertical stack, hydrology tracks the water balance,
// plants grow canopy structure, and litter and soil cycle carbon below it.
func Standard() *Catalogue {
	cat, err := NewCatalogue(
		// Externally supplied forcing and site data.
		Variable{
			Name: "air_temperature_ref", Unit: "C",
			Description:   "air temperature at reference height (2 m above canopy)",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"microclimate"},
		},
		Variable{
			Name: "relative_humidity_ref", Unit: "%",
			Description:   "relative humidity at reference height",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"microclimate"},
		},
		Variable{
			Name: "atmospheric_pressure_ref", Unit: "kPa",
			Description:   "atmospheric pressure at reference height",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"microclimate"},
		},
		Variable{
			Name: "atmospheric_co2_ref", Unit: "ppm",
			Description:   "atmospheric CO2 concentration at reference height",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"microclimate"},
		},
		Variable{
			Name: "mean_annual_temperature", Unit: "C",
			Description:   "mean annual air temperature, anchors deep soil temperature",
			InitialisedBy: []string{External},
			UsedBy:        []string{"microclimate"},
		},
		Variable{
			Name: "precipitation", Unit: "mm",
			Description:   "precipitation per update interval",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"hydrology"},
		},
		Variable{
			Name: "elevation", Unit: "m",
			Description:   "cell elevation above datum",
			InitialisedBy: []string{External},
			UsedBy:        []string{"hydrology"},
		},
		Variable{
			Name: "downward_shortwave_radiation", Unit: "W m-2",
			Description:   "downward shortwave radiation at the top of the canopy",
			InitialisedBy: []string{External}, UpdatedBy: []string{External},
			UsedBy: []string{"plants"},
		},

		// Microclimate profiles over the vertical stack.
		Variable{
			Name: "air_temperature", Unit: "C", Layered: true,
			Description:   "air temperature profile, NaN in soil layers",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
		},
		Variable{
			Name: "relative_humidity", Unit: "%", Layered: true,
			Description:   "relative humidity profile, NaN in soil layers",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
		},
		Variable{
			Name: "vapour_pressure_deficit", Unit: "kPa", Layered: true,
			Description:   "vapour pressure deficit profile, NaN in soil layers",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
		},
		Variable{
			Name: "atmospheric_pressure", Unit: "kPa", Layered: true,
			Description:   "atmospheric pressure over the non-soil layers",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
		},
		Variable{
			Name: "atmospheric_co2", Unit: "ppm", Layered: true,
			Description:   "atmospheric CO2 over the non-soil layers",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
		},
		Variable{
			Name: "soil_temperature", Unit: "C", Layered: true,
			Description:   "soil temperature profile, NaN above ground",
			InitialisedBy: []string{"microclimate"}, UpdatedBy: []string{"microclimate"},
			UsedBy: []string{"litter", "soil"},
		},

		// Canopy structure and plant fluxes.
		Variable{
			Name: "leaf_area_index", Unit: "m m-1", Layered: true,
			Description:   "leaf area index per canopy layer",
			InitialisedBy: []string{"plants"}, UpdatedBy: []string{"plants"},
			UsedBy: []string{"plants", "microclimate"},
		},
		Variable{
			Name: "layer_heights", Unit: "m", Layered: true,
			Description:   "height of each vertical layer, negative below ground",
			InitialisedBy: []string{"plants"}, UpdatedBy: []string{"plants"},
			UsedBy: []string{"microclimate"},
		},
		Variable{
			Name: "evapotranspiration", Unit: "mm",
			Description:   "canopy evapotranspiration per update interval",
			InitialisedBy: []string{"plants"}, UpdatedBy: []string{"plants"},
		},
		Variable{
			Name: "litter_fall", Unit: "kg C m-2",
			Description:   "plant biomass shed to the litter layer per interval",
			InitialisedBy: []string{"plants"}, UpdatedBy: []string{"plants"},
			UsedBy: []string{"litter"},
		},

		// Water balance.
		Variable{
			Name: "soil_moisture", Unit: "mm",
			Description:   "plant-available water in the soil bucket",
			InitialisedBy: []string{"hydrology"}, UpdatedBy: []string{"hydrology"},
			UsedBy: []string{"hydrology", "plants", "soil"},
		},
		Variable{
			Name: "surface_runoff", Unit: "mm",
			Description:   "water leaving the cell surface per interval",
			InitialisedBy: []string{"hydrology"}, UpdatedBy: []string{"hydrology"},
		},

		// Carbon pools.
		Variable{
			Name: "litter_pool", Unit: "kg C m-2",
			Description:   "standing litter carbon",
			InitialisedBy: []string{"litter"}, UpdatedBy: []string{"litter"},
			UsedBy: []string{"litter", "soil"},
		},
		Variable{
			Name: "soil_c_pool_lmwc", Unit: "kg C m-2",
			Description:   "low molecular weight carbon pool",
			InitialisedBy: []string{"soil"}, UpdatedBy: []string{"soil"},
			UsedBy: []string{"soil"},
		},
		Variable{
			Name: "soil_c_pool_maom", Unit: "kg C m-2",
			Description:   "mineral-associated organic matter pool",
			InitialisedBy: []string{"soil"}, UpdatedBy: []string{"soil"},
			UsedBy: []string{"soil"},
		},
	)
	if err != nil {
		panic(err)
	}
	return cat
}
