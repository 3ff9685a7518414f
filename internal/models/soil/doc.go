// Package soil cycles carbon between two below-ground pools. Dissolved
// litter enters the low molecular weight pool, sorption moves it onto the
// mineral-associated pool and desorption releases it back, and microbial
// respiration drains the dissolved pool with Q10 temperature and
// Michaelis-Menten moisture sensitivity.
package soil
