// Package hydrology tracks the per-cell water balance as a single bucket.
//
// Consumes precipitation and elevation (external). Produces and updates
// soil_moisture and surface_runoff, both in mm per update interval.
package hydrology
