package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/internal/result"
	"github.com/zclconf/go-cty/cty"
)

// Call is one recorded engine invocation.
type Call struct {
	Replication int64
	// Conditions is the condition tree the engine saw, as one object.
	Conditions cty.Value
}

// RecordingEngine records every call and reports the value of each watched
// path in a view named "watch".
type RecordingEngine struct {
	// Watch lists condition.port pairs copied into the result.
	Watch []string
	// Fail makes the call for a replication return an error.
	Fail func(replication int64) error

	mu    sync.Mutex
	calls []Call
}

// Run implements registry.Engine.
func (e *RecordingEngine) Run(ctx context.Context, model *config.Model, replication int64) (*result.Map, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Replication: replication, Conditions: model.Conditions.Object()})
	e.mu.Unlock()

	if e.Fail != nil {
		if err := e.Fail(replication); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := result.NewMap()
	view, err := out.AddView("watch", e.Watch...)
	if err != nil {
		return nil, err
	}
	row := make([]cty.Value, len(e.Watch))
	for i, w := range e.Watch {
		v, err := lookup(model, w)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	if err := view.Append(row); err != nil {
		return nil, err
	}
	return out, nil
}

// Calls returns the recorded calls in invocation order.
func (e *RecordingEngine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

func lookup(model *config.Model, condPort string) (cty.Value, error) {
	cond, port, _ := strings.Cut(condPort, ".")
	c, ok := model.Conditions.Condition(cond)
	if !ok {
		return cty.NilVal, fmt.Errorf("no condition %q", cond)
	}
	v, ok := c.Port(port)
	if !ok {
		return cty.NilVal, fmt.Errorf("no port %q", condPort)
	}
	return v, nil
}

// EngineModule registers a fixed engine under Name.
type EngineModule struct {
	Name   string
	Engine registry.Engine
}

// Register implements the registry.Module interface.
func (m *EngineModule) Register(r *registry.Registry) {
	r.RegisterEngine(m.Name, func(context.Context, *config.Model) (registry.Engine, error) {
		return m.Engine, nil
	})
}
