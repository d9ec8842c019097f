package workspace

import (
	"encoding/json"
	"fmt"
)

// Metadata mirrors the subset of `cargo metadata --no-deps` output the
// resolver can consume. An external collaborator supplies the JSON; the
// engine never shells out itself.
type Metadata struct {
	Packages []MetadataPackage `json:"packages"`
}

// MetadataPackage is one package entry in cargo-metadata output
type MetadataPackage struct {
	Name         string               `json:"name"`
	ManifestPath string               `json:"manifest_path"`
	Description  string               `json:"description"`
	Dependencies []MetadataDependency `json:"dependencies"`
}

// MetadataDependency is one declared dependency entry
type MetadataDependency struct {
	Name string `json:"name"`
}

// ParseMetadata decodes cargo-metadata JSON into a package list usable as
// an authoritative override for manifest discovery.
func ParseMetadata(data []byte) ([]Package, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse cargo metadata: %w", err)
	}

	packages := make([]Package, 0, len(meta.Packages))
	for _, mp := range meta.Packages {
		deps := make([]string, 0, len(mp.Dependencies))
		for _, d := range mp.Dependencies {
			deps = append(deps, d.Name)
		}
		packages = append(packages, Package{
			Name:         mp.Name,
			RootPath:     manifestRoot(mp.ManifestPath),
			Description:  mp.Description,
			Dependencies: deps,
		})
	}
	return packages, nil
}
