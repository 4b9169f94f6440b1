package config

import (
	"fmt"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// defaultFloorVersion is assumed when the registry block omits
// default_version.
const defaultFloorVersion = 1

func translateFlow(fb *flowBlock, base string) (*Flow, error) {
	if fb.Path == "" {
		return nil, fmt.Errorf("flow %q: path must not be empty", fb.Alias)
	}

	path := fb.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}

	name := fb.Name
	if name == "" {
		name = fb.Alias
	}

	flow := &Flow{
		Alias:     fb.Alias,
		Name:      name,
		Path:      filepath.Clean(path),
		Retrieves: fb.Retrieves,
	}

	if fb.MinSdkVersion != nil {
		v, err := versionFromCty(*fb.MinSdkVersion)
		if err != nil {
			return nil, fmt.Errorf("flow %q: min_sdk_version: %w", fb.Alias, err)
		}
		flow.DeclaredMin = &v
	}
	return flow, nil
}

func translateRegistry(rb *registryBlock) (*RegistrySpec, error) {
	if rb.Probe == "" {
		return nil, fmt.Errorf("registry: probe must not be empty")
	}

	spec := &RegistrySpec{
		DefaultVersion: defaultFloorVersion,
		Probe:          rb.Probe,
	}

	if rb.DefaultVersion != nil {
		v, err := versionFromCty(*rb.DefaultVersion)
		if err != nil {
			return nil, fmt.Errorf("registry: default_version: %w", err)
		}
		spec.DefaultVersion = v
	}

	for _, fn := range rb.Functions {
		entry := &APIFunction{Name: fn.Name}

		v, err := versionFromCty(fn.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("api_function %q: min_version: %w", fn.Name, err)
		}
		entry.Min = v

		if fn.MaxVersion != nil {
			v, err := versionFromCty(*fn.MaxVersion)
			if err != nil {
				return nil, fmt.Errorf("api_function %q: max_version: %w", fn.Name, err)
			}
			if v < entry.Min {
				return nil, fmt.Errorf("api_function %q: max_version %d is below min_version %d", fn.Name, v, entry.Min)
			}
			entry.Max = &v
		}
		spec.Functions = append(spec.Functions, entry)
	}
	return spec, nil
}

// versionFromCty converts a manifest attribute value into a version number.
// Versions are whole non-negative numbers; anything else is rejected with
// the value's actual type in the message.
func versionFromCty(v cty.Value) (uint64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("value must not be null")
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("expected a number, got %s", v.Type().FriendlyName())
	}

	var n uint64
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return 0, fmt.Errorf("value is not a whole non-negative number: %w", err)
	}
	return n, nil
}
