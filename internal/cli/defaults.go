package cli

import (
	"flag"
	"os"

	"gopkg.in/yaml.v3"
)

// applyDefaultsFile sets every flag named in the YAML file at path that was
// not given on the command line. The file is a flat mapping of flag name to
// scalar value.
func applyDefaultsFile(flagSet *flag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usageError("cannot read config file: %s", err)
	}

	var values map[string]yaml.Node
	if err := yaml.Unmarshal(data, &values); err != nil {
		return usageError("cannot parse config file %s: %s", path, err)
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for name, node := range values {
		if name == "config" || flagSet.Lookup(name) == nil {
			return usageError("config file %s: unknown option %q", path, name)
		}
		if node.Kind != yaml.ScalarNode {
			return usageError("config file %s: option %q must be a scalar (line %d)", path, name, node.Line)
		}
		if explicit[name] {
			continue
		}
		if err := flagSet.Set(name, node.Value); err != nil {
			return usageError("config file %s: option %q: %s", path, name, err)
		}
	}
	return nil
}
