package expr

import (
	"math/rand/v2"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// seedSalt keeps replication streams apart from a plain counter seed.
const seedSalt = 0x9e3779b97f4a7c15

var baseFunctions = map[string]function.Function{
	"abs":      stdlib.AbsoluteFunc,
	"ceil":     stdlib.CeilFunc,
	"floor":    stdlib.FloorFunc,
	"log":      stdlib.LogFunc,
	"max":      stdlib.MaxFunc,
	"min":      stdlib.MinFunc,
	"mod":      stdlib.ModuloFunc,
	"pow":      stdlib.PowFunc,
	"signum":   stdlib.SignumFunc,
	"parseint": stdlib.ParseIntFunc,
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"strlen":   stdlib.StrlenFunc,
	"substr":   stdlib.SubstrFunc,
	"format":   stdlib.FormatFunc,
	"join":     stdlib.JoinFunc,
	"length":   stdlib.LengthFunc,
	"concat":   stdlib.ConcatFunc,
	"element":  stdlib.ElementFunc,
	"coalesce": stdlib.CoalesceFunc,
	"contains": stdlib.ContainsFunc,
	"range":    stdlib.RangeFunc,
	"sort":     stdlib.SortFunc,
}

// functionsFor returns the function table of one replication.
func functionsFor(replication int64) map[string]function.Function {
	rng := rand.New(rand.NewPCG(uint64(replication), seedSalt))

	funcs := make(map[string]function.Function, len(baseFunctions)+1)
	for name, fn := range baseFunctions {
		funcs[name] = fn
	}
	funcs["rand"] = function.New(&function.Spec{
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.NumberFloatVal(rng.Float64()), nil
		},
	})
	return funcs
}

// knownFunction reports whether name can be called from a column.
func knownFunction(name string) bool {
	if name == "rand" {
		return true
	}
	_, ok := baseFunctions[name]
	return ok
}
