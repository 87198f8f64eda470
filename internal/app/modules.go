package app

import (
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/modules/expr"
)

// coreModules is the definitive list of all engines compiled into the
// batchgrid binary.
var coreModules = []registry.Module{
	&expr.Module{},
}
