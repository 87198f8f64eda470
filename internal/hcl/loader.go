package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the definition file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decode(ctx, path, file)
}

// LoadSource parses a definition held in memory. filename is only used in
// diagnostics.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decode(ctx, filename, file)
}

func (l *Loader) decode(ctx context.Context, path string, file *hcl.File) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model, err := l.translate(ctx, &root)
	if err != nil {
		return nil, fmt.Errorf("invalid definition in %s: %w", path, err)
	}
	model.Source = path

	logger.Debug("HCL loading complete.",
		"engine", model.Engine,
		"duration", model.Duration,
		"conditions", len(model.Conditions.Conditions()),
		"views", len(model.Views),
	)
	return model, nil
}
