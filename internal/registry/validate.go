package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
)

// Validate checks that the model can be run: its engine is registered and
// accepts the definition, and its names are usable in records.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	if len(r.engines) == 0 {
		errs = append(errs, "no engines are registered")
	}
	if len(model.Views) == 0 {
		logger.Warn("Definition declares no views; every record will only hold the kept columns.", "source", model.Source)
	}
	for _, view := range model.Views {
		if len(view.Columns) == 0 {
			logger.Warn("View has no columns.", "view", view.Name)
		}
		for _, col := range view.Columns {
			if col.Expr == nil {
				errs = append(errs, fmt.Sprintf("view '%s', column '%s': no value expression", view.Name, col.Name))
			}
		}
	}
	if len(errs) == 0 {
		if _, err := r.NewEngine(ctx, model); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "engine", model.Engine)
	return nil
}
