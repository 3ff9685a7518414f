// Package models collects the shipped process models.
package models

import (
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/models/hydrology"
	"github.com/mesocosm/mesocosm/internal/models/litter"
	"github.com/mesocosm/mesocosm/internal/models/microclimate"
	"github.com/mesocosm/mesocosm/internal/models/plants"
	"github.com/mesocosm/mesocosm/internal/models/soil"
)

// RegisterBuiltins installs every shipped model into the registry.
func RegisterBuiltins(reg *model.Registry) {
	microclimate.Register(reg)
	hydrology.Register(reg)
	plants.Register(reg)
	litter.Register(reg)
	soil.Register(reg)
}
