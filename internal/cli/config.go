package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagDefaults maps flag names to default values parsed from a TOML
// config file. Keys use the flag's long name; values must be scalars.
type FlagDefaults map[string]any

// LoadFlagDefaults reads a TOML config file of flag defaults.
func LoadFlagDefaults(path string) (FlagDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return FlagDefaults(raw), nil
}

// Apply sets each default on cmd's flags. Command-line values win: a flag
// already set by the caller keeps its value. Keys naming flags the
// current command does not define are skipped; one config file can carry
// defaults for several commands.
func (d FlagDefaults) Apply(cmd *cobra.Command) error {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		flag := lookupFlag(cmd, name)
		if flag == nil || flag.Changed {
			continue
		}
		text, err := scalarString(d[name])
		if err != nil {
			return fmt.Errorf("config file flag %q: %v", name, err)
		}
		if err := flag.Value.Set(text); err != nil {
			return fmt.Errorf("config file flag %q: %v", name, err)
		}
	}
	return nil
}

// lookupFlag finds a flag by long name on the command or its parents.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag
	}
	return cmd.InheritedFlags().Lookup(name)
}

// scalarString renders a TOML scalar as flag-settable text.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", v)
	}
}
