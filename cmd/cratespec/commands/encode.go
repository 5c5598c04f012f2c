package commands

import (
	"context"
	"crypto"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/config"
	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/output"
	"github.com/LeeLiangmin/crate-spec/container"
	"github.com/LeeLiangmin/crate-spec/manifest"
	"github.com/LeeLiangmin/crate-spec/network"
	"github.com/LeeLiangmin/crate-spec/observability"
)

type encodeOptions struct {
	manifestPath   string
	innerPath      string
	certPath       string
	keyPath        string
	outputDir      string
	sigType        string
	configFile     string
	nonInteractive bool
	remote         bool
}

// NewEncodeCommand creates the encode command: manifest + inner package +
// signing key material in, a .scrate container out (spec.md §2 "encode").
func NewEncodeCommand(console *output.Console) *cobra.Command {
	opts := &encodeOptions{}

	cmd := &cobra.Command{
		Use:   "encode <manifest> <inner-package>",
		Short: "Build a signed .scrate package container",
		Long: `Reads a declarative manifest and an opaque inner package, signs the
result with the configured certificate and private key, and writes a
<name>-<version>.scrate container to the output directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.manifestPath = args[0]
			opts.innerPath = args[1]
			return runEncode(console, opts.configFile, opts)
		},
	}

	cmd.Flags().StringVar(&opts.certPath, "cert", "", "PEM signer certificate path")
	cmd.Flags().StringVar(&opts.keyPath, "key", "", "PEM signer private key path (ignored with --remote)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory to write the .scrate container to")
	cmd.Flags().StringVar(&opts.sigType, "sig-type", "", "Signature coverage: file or cratebin")
	cmd.Flags().StringVar(&opts.configFile, "configfile", "", "cratespec configuration file to use")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Do not prompt for a signing passphrase")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "Sign via the remote-PKI platform configured in the config file's [remote] table, instead of the local private key")

	return cmd
}

func runEncode(console *output.Console, configFile string, opts *encodeOptions) error {
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

	certPath, err := config.Resolve(opts.certPath, fileCfg.CertPath, "cert")
	if err != nil {
		return err
	}
	var keyPath string
	if !opts.remote {
		keyPath, err = config.Resolve(opts.keyPath, fileCfg.KeyPath, "key")
		if err != nil {
			return err
		}
	}
	outputDir, err := config.Resolve(opts.outputDir, fileCfg.OutputDir, "output-dir")
	if err != nil {
		return err
	}
	sigTypeName := config.ResolveOptional(opts.sigType, fileCfg.SigType)
	if sigTypeName == "" {
		sigTypeName = "file"
	}
	sigType, err := parseSigType(sigTypeName)
	if err != nil {
		return err
	}

	logger, correlationID := observability.NewDefaultLogger().ForOperation("encode")
	console.Debug("correlation id: %s", correlationID)

	manifestData, err := os.ReadFile(opts.manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	ctx := context.Background()
	ctx, ingestSpan := observability.StartManifestIngestSpan(ctx, len(manifestData))
	info, deps, err := manifest.Ingest(manifestData)
	observability.EndSpanWithError(ingestSpan, err)
	if err != nil {
		observability.ManifestIngestErrorsTotal.WithLabelValues("parse").Inc()
		return fmt.Errorf("ingest manifest: %w", err)
	}
	logger.Info("manifest ingested: {Name} {Version}, {DepCount} dependencies", info.Name, info.Version, len(deps))

	innerBytes, err := os.ReadFile(opts.innerPath)
	if err != nil {
		return fmt.Errorf("read inner package: %w", err)
	}

	cert, err := loadCertificate(certPath)
	if err != nil {
		return err
	}

	var keyID string
	if len(cert.SubjectKeyId) > 0 {
		keyID = cert.Subject.CommonName + ":" + fmt.Sprintf("%x", cert.SubjectKeyId)
	} else {
		keyID = cert.Subject.CommonName
	}

	pkgCtx := container.NewContext()

	var key crypto.Signer
	if opts.remote {
		if fileCfg.Remote == nil {
			return fmt.Errorf("--remote requires a [remote] table in the config file")
		}
		client, kp, err := dialRemoteSigner(*fileCfg.Remote)
		if err != nil {
			return err
		}
		pkgCtx.Adapter = network.NewRemoteAdapter(client, kp)
		key = network.NewRemoteSigner(kp, client)
	} else {
		passphrase, err := resolvePassphraseIfEncrypted(console, keyPath, keyID, opts.nonInteractive)
		if err != nil {
			return err
		}
		key, err = loadPrivateKey(keyPath, passphrase)
		if err != nil {
			return err
		}
	}

	pkgCtx.SetPackageInfo(info)
	for _, dep := range deps {
		pkgCtx.AddDep(dep)
	}
	pkgCtx.SetCrateBinary(innerBytes)
	pkgCtx.AddSignature(sigType, cert, key)

	_, encodeSpan := observability.StartEncodeSpan(ctx, info.Name, info.Version, pkgCtx.SigCount())
	buf, err := container.Encode(pkgCtx)
	observability.EndSpanWithError(encodeSpan, err)
	if err != nil {
		observability.EncodeOperationsTotal.WithLabelValues("failure").Inc()
		logger.Error("encode failed: {Error}", err)
		return fmt.Errorf("encode: %w", err)
	}
	observability.EncodeOperationsTotal.WithLabelValues("success").Inc()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	outPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s.scrate", info.Name, info.Version))
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	console.Success("Wrote %s (%d bytes)", outPath, len(buf))
	return nil
}

func parseSigType(name string) (container.SigType, error) {
	switch name {
	case "file":
		return container.SigTypeFile, nil
	case "cratebin":
		return container.SigTypeCrateBin, nil
	default:
		return 0, fmt.Errorf("unknown --sig-type %q (want file or cratebin)", name)
	}
}

// dialRemoteSigner connects to the remote-PKI platform described by cfg and
// loads (or fetches and caches) the signing keypair it should use, per
// network.LoadOrFetch's load-else-fetch-and-save contract.
func dialRemoteSigner(cfg config.RemoteSigning) (*network.PKIClient, *network.KeyPair, error) {
	clientCfg := network.DefaultPKIClientConfig(cfg.DiscoveryURL, cfg.GRPCTarget)
	clientCfg.Insecure = cfg.Insecure
	clientCfg.BearerToken = cfg.BearerToken

	client, err := network.NewPKIClient(clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to remote PKI: %w", err)
	}

	cachePath := cfg.KeyPairCache
	if cachePath == "" {
		return nil, nil, fmt.Errorf("[remote].keypair_cache must name a local keypair cache path")
	}

	kp, err := network.LoadOrFetch(cachePath, client, network.BaseConfig{
		Algo: cfg.Algo,
		KMS:  cfg.KMS,
		Flow: cfg.Flow,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load or fetch remote signing keypair: %w", err)
	}

	return client, kp, nil
}

// resolvePassphraseIfEncrypted only prompts/looks up a passphrase when the
// key file is actually encrypted, so an unencrypted key never triggers a
// keyring lookup or terminal prompt.
func resolvePassphraseIfEncrypted(console *output.Console, keyPath, keyID string, nonInteractive bool) (string, error) {
	encrypted, err := isEncryptedKeyFile(keyPath)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return "", nil
	}
	return resolvePassphrase(console, keyID, nonInteractive)
}
