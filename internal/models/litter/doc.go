// Package litter keeps the standing litter carbon pool. Litter fall from
// the plants model accumulates into it and a Q10 decay term, driven by the
// temperature of the top soil layer, drains it. The decayed carbon feeds
// the soil model's dissolved pool.
package litter
