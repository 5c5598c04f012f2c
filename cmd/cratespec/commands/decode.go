package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/config"
	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/output"
	"github.com/LeeLiangmin/crate-spec/container"
	"github.com/LeeLiangmin/crate-spec/observability"
)

type decodeOptions struct {
	packagePath string
	rootsPath   string
	outputDir   string
	innerExt    string
	configFile  string
}

// metadataDump is the shape written to <name>-<version>-metadata.txt
// (spec.md §6's "human-readable dump of package info and dependency
// records"), rendered as YAML for legibility with nested records.
type metadataDump struct {
	Name         string             `yaml:"name"`
	Version      string             `yaml:"version"`
	License      string             `yaml:"license,omitempty"`
	Authors      []string           `yaml:"authors,omitempty"`
	Dependencies []dependencyRecord `yaml:"dependencies"`
}

type dependencyRecord struct {
	Name        string  `yaml:"name"`
	VersionReq  string  `yaml:"version_req"`
	Source      string  `yaml:"source"`
	SourceParam string  `yaml:"source_param,omitempty"`
	Platform    *string `yaml:"platform,omitempty"`
}

// NewDecodeCommand creates the decode command: a .scrate container in, the
// recovered inner package plus a metadata dump out (spec.md §2 "decode").
func NewDecodeCommand(console *output.Console) *cobra.Command {
	opts := &decodeOptions{}

	cmd := &cobra.Command{
		Use:   "decode <package.scrate>",
		Short: "Verify and unpack a signed .scrate package container",
		Long: `Verifies the container's fingerprint and every signature against the
configured trusted roots, then writes the recovered inner package and a
human-readable metadata dump to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.packagePath = args[0]
			return runDecode(console, opts.configFile, opts)
		},
	}

	cmd.Flags().StringVar(&opts.rootsPath, "roots", "", "PEM file of trusted root certificates")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory to write the recovered package and metadata to")
	cmd.Flags().StringVar(&opts.innerExt, "inner-ext", "bin", "Extension to give the recovered inner package file (the container format itself carries no extension)")
	cmd.Flags().StringVar(&opts.configFile, "configfile", "", "cratespec configuration file to use")

	return cmd
}

func runDecode(console *output.Console, configFile string, opts *decodeOptions) error {
	fileCfg := &config.Config{}
	if configFile == "" {
		configFile = config.FindConfigFile()
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		fileCfg = loaded
	}

	rootsPath, err := config.Resolve(opts.rootsPath, fileCfg.RootsPath, "roots")
	if err != nil {
		return err
	}
	outputDir, err := config.Resolve(opts.outputDir, fileCfg.OutputDir, "output-dir")
	if err != nil {
		return err
	}

	logger, correlationID := observability.NewDefaultLogger().ForOperation("decode")
	console.Debug("correlation id: %s", correlationID)

	buf, err := os.ReadFile(opts.packagePath)
	if err != nil {
		return fmt.Errorf("read package: %w", err)
	}

	roots, err := loadRoots(rootsPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, decodeSpan := observability.StartDecodeSpan(ctx, len(buf))
	pkgCtx, err := container.Decode(buf, roots)
	observability.EndSpanWithError(decodeSpan, err)
	if err != nil {
		observability.DecodeOperationsTotal.WithLabelValues("failure").Inc()
		logger.Error("decode failed: {Error}", err)
		return fmt.Errorf("decode: %w", err)
	}
	observability.DecodeOperationsTotal.WithLabelValues("success").Inc()
	logger.Info("package decoded: {Name} {Version}, {SigCount} signatures verified", pkgCtx.Info.Name, pkgCtx.Info.Version, pkgCtx.SigCount())

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ext := opts.innerExt
	if ext == "" {
		ext = "bin"
	}
	innerPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s.%s", pkgCtx.Info.Name, pkgCtx.Info.Version, ext))
	if err := os.WriteFile(innerPath, pkgCtx.CrateBinary, 0o644); err != nil {
		return fmt.Errorf("write inner package: %w", err)
	}

	metadataPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s-metadata.txt", pkgCtx.Info.Name, pkgCtx.Info.Version))
	dump := metadataDump{
		Name:    pkgCtx.Info.Name,
		Version: pkgCtx.Info.Version,
		License: pkgCtx.Info.License,
		Authors: pkgCtx.Info.Authors,
	}
	for _, dep := range pkgCtx.Deps {
		dump.Dependencies = append(dump.Dependencies, dependencyRecord{
			Name:        dep.Name,
			VersionReq:  dep.VersionReq,
			Source:      depSourceName(dep.SourceKind),
			SourceParam: dep.SourceParam,
			Platform:    dep.Platform,
		})
	}

	metadataBytes, err := yaml.Marshal(dump)
	if err != nil {
		return fmt.Errorf("render metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, metadataBytes, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	console.Success("Recovered %s", innerPath)
	console.Success("Wrote %s", metadataPath)
	return nil
}

func depSourceName(kind container.DepSourceKind) string {
	switch kind {
	case container.DepSourceCratesIo:
		return "registry"
	case container.DepSourceGit:
		return "git"
	case container.DepSourceURL:
		return "url"
	case container.DepSourceRegistry:
		return "registry-named"
	case container.DepSourcePeerToPeer:
		return "p2p"
	default:
		return "unknown"
	}
}
