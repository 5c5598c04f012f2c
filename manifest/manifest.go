// Package manifest ingests a project's declarative TOML manifest and
// produces the package-identity and dependency records the container
// package needs to build a signed package, following the same
// tagged-struct-then-validate ingest idiom a NuGet nuspec parser uses,
// adapted from XML element tags to TOML table keys.
package manifest

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/LeeLiangmin/crate-spec/container"
)

// rawManifest is the TOML-shaped document: a [package] table and a
// [dependencies] table whose values are either a bare version-requirement
// string (default registry source) or an inline table selecting git, URL,
// registry, or peer-to-peer sources.
type rawManifest struct {
	Package      rawPackage                `toml:"package"`
	Dependencies map[string]any            `toml:"dependencies"`
}

type rawPackage struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	License string   `toml:"license"`
	Authors []string `toml:"authors"`
}

// rawDependency holds every field any dependency-source variant might carry;
// UnmarshalTOML below lets a value be either a bare string or an inline
// table, mirroring the ecosystem's Cargo.toml convention.
type rawDependency struct {
	Version  string
	Git      string
	Rev      string
	Branch   string
	URL      string
	Registry string
	Peer     string
	Platform string
}

// UnmarshalTOML fills d from one generically decoded [dependencies] value,
// so `dep = "1.0"` and `dep = { git = "...", rev = "..." }` both decode into
// the same type. materializeDeps calls it for every entry.
func (d *rawDependency) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		d.Version = v
		return nil
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			d.Version = s
		}
		if s, ok := v["git"].(string); ok {
			d.Git = s
		}
		if s, ok := v["rev"].(string); ok {
			d.Rev = s
		}
		if s, ok := v["branch"].(string); ok {
			d.Branch = s
		}
		if s, ok := v["url"].(string); ok {
			d.URL = s
		}
		if s, ok := v["registry"].(string); ok {
			d.Registry = s
		}
		if s, ok := v["peer"].(string); ok {
			d.Peer = s
		}
		if s, ok := v["platform"].(string); ok {
			d.Platform = s
		}
		return nil
	default:
		return fmt.Errorf("dependency entry must be a string or a table, got %T", value)
	}
}

// Ingest parses manifest TOML bytes, validates the result against the
// declarative schema, and returns the package-identity record plus the
// ordered dependency list. Unknown top-level keys are tolerated (spec.md
// §6), mirroring the original's from_toml "dump=false" exclusion: only the
// keys this function understands are extracted, everything else is
// silently ignored rather than rejected.
func Ingest(data []byte) (container.PackageInfo, []container.DepInfo, error) {
	if err := ValidateSchema(data); err != nil {
		return container.PackageInfo{}, nil, fmt.Errorf("manifest schema validation: %w", err)
	}

	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return container.PackageInfo{}, nil, fmt.Errorf("parse manifest toml: %w", err)
	}

	if raw.Package.Name == "" || raw.Package.Version == "" {
		return container.PackageInfo{}, nil, fmt.Errorf("manifest [package] table requires name and version")
	}

	info := container.PackageInfo{
		Name:    raw.Package.Name,
		Version: raw.Package.Version,
		License: raw.Package.License,
		Authors: raw.Package.Authors,
	}

	deps, err := materializeDeps(raw.Dependencies)
	if err != nil {
		return container.PackageInfo{}, nil, err
	}

	return info, deps, nil
}

// materializeDeps applies the mutually-exclusive source-field discrimination
// rule: Git wins over URL wins over Registry wins over Peer; a dependency
// with none of those set defaults to the crates-io-equivalent registry.
func materializeDeps(raw map[string]any) ([]container.DepInfo, error) {
	deps := make([]container.DepInfo, 0, len(raw))
	for name, value := range raw {
		var d rawDependency
		if err := d.UnmarshalTOML(value); err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		dep := container.DepInfo{Name: name, VersionReq: d.Version}

		switch {
		case d.Git != "":
			dep.SourceKind = container.DepSourceGit
			dep.SourceParam = gitSourceParam(d.Git, d.Rev, d.Branch)
		case d.URL != "":
			dep.SourceKind = container.DepSourceURL
			dep.SourceParam = d.URL
		case d.Registry != "":
			dep.SourceKind = container.DepSourceRegistry
			dep.SourceParam = d.Registry
		case d.Peer != "":
			dep.SourceKind = container.DepSourcePeerToPeer
			dep.SourceParam = d.Peer
		default:
			dep.SourceKind = container.DepSourceCratesIo
		}

		if d.Platform != "" {
			platform := d.Platform
			dep.Platform = &platform
		}

		deps = append(deps, dep)
	}
	// A TOML table has no on-disk ordering guarantee; sort by name so
	// re-ingesting the same manifest always produces the same dependency
	// order (the container format itself preserves whatever order it's given).
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}

func gitSourceParam(url, rev, branch string) string {
	switch {
	case rev != "":
		return url + "#" + rev
	case branch != "":
		return url + "@" + branch
	default:
		return url
	}
}
