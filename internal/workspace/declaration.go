package workspace

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"cratescope/internal/source"
)

// DeclarationFile is the default filename for explicit package declarations.
// When present at the project root it overrides manifest discovery entirely.
const DeclarationFile = "PACKAGES.toml"

// PackageDeclaration is one declared package in PACKAGES.toml
type PackageDeclaration struct {
	// Name is the package name
	Name string `toml:"name"`
	// Path is the repo-relative path to the package root
	Path string `toml:"path"`
	// Dependencies are declared dependency names on sibling packages
	Dependencies []string `toml:"dependencies,omitempty"`
	// Responsibility is a one-line description of what this package does
	Responsibility string `toml:"responsibility,omitempty"`
}

// DeclarationsFile represents the root structure of PACKAGES.toml
type DeclarationsFile struct {
	// Version is the schema version
	Version int `toml:"version"`
	// Packages is the list of declared packages
	Packages []PackageDeclaration `toml:"package"`
}

// ParseDeclarations parses PACKAGES.toml bytes
func ParseDeclarations(data []byte) (*DeclarationsFile, error) {
	var file DeclarationsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DeclarationFile, err)
	}
	if file.Version < 1 {
		file.Version = 1
	}
	return &file, nil
}

// MarshalDeclarations serializes a declarations file back to TOML
func MarshalDeclarations(file *DeclarationsFile) ([]byte, error) {
	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", DeclarationFile, err)
	}
	return data, nil
}

// LoadDeclaredPackages reads PACKAGES.toml from the tree if present and
// converts it to a package list. Returns (nil, nil) when no declaration
// file exists.
func LoadDeclaredPackages(tree source.Tree) ([]Package, error) {
	var data []byte
	for _, file := range tree.Files() {
		if file == DeclarationFile {
			var err error
			data, err = tree.Read(file)
			if err != nil {
				return nil, err
			}
			break
		}
	}
	if data == nil {
		return nil, nil
	}

	parsed, err := ParseDeclarations(data)
	if err != nil {
		return nil, err
	}

	packages := make([]Package, 0, len(parsed.Packages))
	for _, decl := range parsed.Packages {
		if decl.Path == "" {
			return nil, fmt.Errorf("package declaration %q missing required 'path' field", decl.Name)
		}
		name := decl.Name
		if name == "" {
			name = pathBase(decl.Path)
		}
		packages = append(packages, Package{
			Name:         name,
			RootPath:     decl.Path,
			Description:  decl.Responsibility,
			Dependencies: decl.Dependencies,
		})
	}
	return packages, nil
}

// ExampleDeclarations returns a starter PACKAGES.toml structure
func ExampleDeclarations() *DeclarationsFile {
	return &DeclarationsFile{
		Version: 1,
		Packages: []PackageDeclaration{
			{
				Name:           "core",
				Path:           "crates/core",
				Responsibility: "Domain types and business logic",
			},
			{
				Name:           "api",
				Path:           "crates/api",
				Dependencies:   []string{"core"},
				Responsibility: "HTTP interface",
			},
		},
	}
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
