package config

// Model is the unified representation of the entire project manifest,
// merged across every manifest file.
type Model struct {
	Settings  Settings
	Platforms []*Platform
	Registry  *RegistrySpec
}

// Settings holds run-wide options from the `settings` block.
type Settings struct {
	OutputDir string
}

// Platform groups the deliverable flows of one target platform.
type Platform struct {
	Name        string
	Description string
	Flows       []*Flow
}

// Flow describes one deliverable flow entry point. Path is resolved
// relative to the manifest file that declared it. DeclaredMin, when
// present, is the author's expected minimum version; it is cross-checked
// against the computed one, never used as an input.
type Flow struct {
	Alias       string
	Name        string
	Path        string
	DeclaredMin *uint64
	Retrieves   []string
}

// RegistrySpec describes the API function registry: the version-probe
// function name, the floor version applied when a flow constrains
// nothing, and the per-function version windows.
type RegistrySpec struct {
	DefaultVersion uint64
	Probe          string
	Functions      []*APIFunction
}

// APIFunction is one registry entry. A nil Max means the function is
// supported on every version from Min upward.
type APIFunction struct {
	Name string
	Min  uint64
	Max  *uint64
}

// Flows returns every flow across all platforms.
func (m *Model) Flows() []*Flow {
	var out []*Flow
	for _, p := range m.Platforms {
		out = append(out, p.Flows...)
	}
	return out
}
