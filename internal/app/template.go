package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vk/batchgrid/internal/binder"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/paramtree"
	"github.com/vk/batchgrid/internal/result"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// writeTemplate writes an input stream skeleton for the loaded definition:
// a header naming every parameter and one row holding the defaults.
func (a *App) writeTemplate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	out, closeOut, err := a.openOutput()
	if err != nil {
		return err
	}

	var text string
	if a.config.Complex {
		text, err = complexTemplate(a.model.Conditions)
	} else {
		text, err = flatTemplate(a.model.Conditions)
	}
	if err == nil {
		_, err = io.WriteString(out, text)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	logger.Debug("Template written.", "complex", a.config.Complex)
	return nil
}

// flatTemplate fails on parameters a flat input stream cannot carry: keys
// that break the dotted header and defaults that would need quoting.
func flatTemplate(tree *paramtree.Tree) (string, error) {
	leaves := tree.Leaves()
	header := make([]string, len(leaves))
	row := make([]string, len(leaves))
	for i, p := range leaves {
		for _, seg := range p.Segments {
			if strings.Contains(seg, ".") || result.NeedsQuoting(seg) {
				return "", fmt.Errorf("key %q of %s.%s cannot be written in a flat template; use -template -complex", seg, p.Condition, p.Port)
			}
		}
		ref, err := tree.Resolve(p)
		if err != nil {
			return "", err
		}
		v, err := tree.Get(ref)
		if err != nil {
			return "", err
		}
		cell := result.FormatValue(v)
		if v.Type() == cty.String && !v.IsNull() && cell != v.AsString() {
			return "", fmt.Errorf("default of %s cannot be written in a flat template; use -template -complex", p)
		}
		header[i] = p.String()
		row[i] = cell
	}
	return strings.Join(header, ",") + "\n" + strings.Join(row, ",") + "\n", nil
}

func complexTemplate(tree *paramtree.Tree) (string, error) {
	obj := tree.Object()
	b, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return "", err
	}
	return binder.ComplexHeader + "\n" + string(b) + "\n", nil
}
