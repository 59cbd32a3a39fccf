// Package config loads a YAML config file and merges it under explicitly-set
// CLI flags: the config file supplies defaults, and any flag the operator
// actually passed on the command line wins. This mirrors the original CLIs'
// --config-file merge behavior (argparse_config_merge), reimplemented here
// against cobra's pflag.FlagSet, which already tracks which flags were
// explicitly set via Flag.Changed.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML document from path into a map of flag name to value.
func Load(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return doc, nil
}

// ApplyDefaults sets each flag in fs to the config file's value, but only if
// the operator did not already set that flag explicitly on the command
// line. Flags absent from the config file are left untouched.
func ApplyDefaults(fs *pflag.FlagSet, values map[string]interface{}) error {
	var firstErr error
	for name, v := range values {
		flag := fs.Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if err := flag.Value.Set(fmt.Sprintf("%v", v)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("config: set %s: %w", name, err)
		}
	}
	return firstErr
}
