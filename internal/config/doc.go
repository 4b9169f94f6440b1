// Package config loads the project manifest: the declarative description
// of deliverable flows, grouped by platform, together with the API function
// registry used to resolve version requirements. Manifests are HCL; the
// loader merges every .hcl file found at the configured path into a single
// validated Model.
package config
