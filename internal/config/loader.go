package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/fsutil"
)

// Loader reads HCL manifest files into the Model.
type Loader struct{}

// NewLoader creates a new manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all recognized top-level blocks from one manifest file.
type fileRoot struct {
	Settings  *settingsBlock   `hcl:"settings,block"`
	Platforms []*platformBlock `hcl:"platform,block"`
	Registry  *registryBlock   `hcl:"registry,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type settingsBlock struct {
	OutputDir string `hcl:"output_dir,optional"`
}

type platformBlock struct {
	Name        string       `hcl:"name,label"`
	Description string       `hcl:"description,optional"`
	Flows       []*flowBlock `hcl:"flow,block"`
}

type flowBlock struct {
	Alias         string     `hcl:"alias,label"`
	Name          string     `hcl:"name,optional"`
	Path          string     `hcl:"path"`
	MinSdkVersion *cty.Value `hcl:"min_sdk_version,optional"`
	Retrieves     []string   `hcl:"retrieves,optional"`
}

type registryBlock struct {
	DefaultVersion *cty.Value          `hcl:"default_version,optional"`
	Probe          string              `hcl:"probe"`
	Functions      []*apiFunctionBlock `hcl:"api_function,block"`
}

type apiFunctionBlock struct {
	Name       string     `hcl:"name,label"`
	MinVersion cty.Value  `hcl:"min_version"`
	MaxVersion *cty.Value `hcl:"max_version,optional"`
}

// Load reads the manifest at path, which may be a single .hcl file or a
// directory of them, and merges every file into one validated Model.
func (l *Loader) Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loader started.", "path", path)

	files, err := fsutil.ResolveFiles(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl manifest files found at %s", path)
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	model := &Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}

		if err := mergeFile(model, &root, file); err != nil {
			return nil, err
		}
	}

	if err := validate(model); err != nil {
		return nil, err
	}

	logger.Debug("Manifest loading complete.",
		"platforms", len(model.Platforms),
		"flows", len(model.Flows()),
		"api_functions", len(model.Registry.Functions))
	return model, nil
}

// mergeFile folds one decoded manifest file into the model. Flow paths are
// resolved relative to the file that declared them.
func mergeFile(model *Model, root *fileRoot, file string) error {
	if root.Settings != nil {
		if model.Settings.OutputDir != "" && root.Settings.OutputDir != "" {
			return fmt.Errorf("manifest %s: output_dir declared more than once", file)
		}
		if root.Settings.OutputDir != "" {
			model.Settings.OutputDir = root.Settings.OutputDir
		}
	}

	base := filepath.Dir(file)
	for _, pb := range root.Platforms {
		platform := &Platform{Name: pb.Name, Description: pb.Description}
		for _, fb := range pb.Flows {
			flow, err := translateFlow(fb, base)
			if err != nil {
				return fmt.Errorf("manifest %s: %w", file, err)
			}
			platform.Flows = append(platform.Flows, flow)
		}
		model.Platforms = append(model.Platforms, platform)
	}

	if root.Registry != nil {
		if model.Registry != nil {
			return fmt.Errorf("manifest %s: registry declared more than once", file)
		}
		spec, err := translateRegistry(root.Registry)
		if err != nil {
			return fmt.Errorf("manifest %s: %w", file, err)
		}
		model.Registry = spec
	}
	return nil
}

func validate(model *Model) error {
	if model.Registry == nil {
		return fmt.Errorf("manifest is missing a registry block")
	}

	seen := make(map[string]struct{})
	for _, flow := range model.Flows() {
		if _, dup := seen[flow.Alias]; dup {
			return fmt.Errorf("flow alias %q declared more than once", flow.Alias)
		}
		seen[flow.Alias] = struct{}{}
	}
	return nil
}
