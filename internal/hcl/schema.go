package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block of a definition file.
type fileRoot struct {
	Simulation *simulationBlock  `hcl:"simulation,block"`
	Conditions []*conditionBlock `hcl:"condition,block"`
	Views      []*viewBlock      `hcl:"view,block"`
}

type simulationBlock struct {
	Engine   *string `hcl:"engine,optional"`
	Duration *int64  `hcl:"duration,optional"`
}

// conditionBlock holds free-form port attributes.
type conditionBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type viewBlock struct {
	Name    string         `hcl:"name,label"`
	Columns []*columnBlock `hcl:"column,block"`
}

type columnBlock struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value,attr"`
	Type  hcl.Expression `hcl:"type,optional"`
}
