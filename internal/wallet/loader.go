package wallet

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	pathutils "github.com/temirov/goose/internal/utils/path"
)

const (
	// DefaultCLIConfigurationPath is where the Solana CLI stores its configuration.
	DefaultCLIConfigurationPath = "~/.config/solana/cli/config.yml"

	missingSolanaConfigMessageConstant = "solana cli configuration not found"
	missingRPCURLMessageConstant       = "rpc url is not configured"
	missingKeypairPathMessageConstant  = "keypair path is not configured"
	configurationReadTemplateConstant  = "%w: %s: %v"
	configurationParseTemplateConstant = "unable to parse solana cli configuration %s: %w"
	configurationPathTemplateConstant  = "unable to resolve solana cli configuration path: %w"
	keypairPathResolveTemplateConstant = "unable to resolve keypair path: %w"
	keypairLoadTemplateConstant        = "unable to load keypair %s: %w"
)

var (
	// ErrMissingSolanaConfig indicates that the Solana CLI configuration file could not be read.
	ErrMissingSolanaConfig = errors.New(missingSolanaConfigMessageConstant)
	// ErrMissingRPCURL indicates that neither configuration nor overrides provide an RPC endpoint.
	ErrMissingRPCURL = errors.New(missingRPCURLMessageConstant)
	// ErrMissingKeypairPath indicates that neither configuration nor overrides provide a keypair file.
	ErrMissingKeypairPath = errors.New(missingKeypairPathMessageConstant)
)

// CLIConfiguration mirrors the fields of the Solana CLI config.yml consumed by goose.
type CLIConfiguration struct {
	JSONRPCURL   string `yaml:"json_rpc_url"`
	WebsocketURL string `yaml:"websocket_url"`
	KeypairPath  string `yaml:"keypair_path"`
	Commitment   string `yaml:"commitment"`
}

// Settings are operator overrides layered on top of the Solana CLI configuration.
type Settings struct {
	ConfigurationPath string
	RPCURL            string
	KeypairPath       string
	Commitment        string
}

// Wallet is the resolved connection target and fee payer.
type Wallet struct {
	RPCURL     string
	Commitment string
	Payer      solana.PrivateKey
}

// FileReader reads file contents.
type FileReader func(filePath string) ([]byte, error)

// KeypairReader loads a keypair file in the solana-keygen JSON format.
type KeypairReader func(filePath string) (solana.PrivateKey, error)

// Loader resolves Settings into a Wallet.
type Loader struct {
	pathResolver *pathutils.PathResolver
	readFile     FileReader
	readKeypair  KeypairReader
}

// NewLoader constructs a Loader backed by the file system.
func NewLoader(pathResolver *pathutils.PathResolver) *Loader {
	return NewLoaderWithReaders(pathResolver, os.ReadFile, solana.PrivateKeyFromSolanaKeygenFile)
}

// NewLoaderWithReaders constructs a Loader with custom readers.
func NewLoaderWithReaders(pathResolver *pathutils.PathResolver, fileReader FileReader, keypairReader KeypairReader) *Loader {
	if pathResolver == nil {
		pathResolver = pathutils.NewPathResolver()
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	if keypairReader == nil {
		keypairReader = solana.PrivateKeyFromSolanaKeygenFile
	}
	return &Loader{pathResolver: pathResolver, readFile: fileReader, readKeypair: keypairReader}
}

// LoadCLIConfiguration reads the Solana CLI configuration at configurationPath.
func (loader *Loader) LoadCLIConfiguration(configurationPath string) (CLIConfiguration, error) {
	if len(strings.TrimSpace(configurationPath)) == 0 {
		configurationPath = DefaultCLIConfigurationPath
	}
	resolvedPath, resolveError := loader.pathResolver.Resolve(configurationPath)
	if resolveError != nil {
		return CLIConfiguration{}, fmt.Errorf(configurationPathTemplateConstant, resolveError)
	}

	contents, readError := loader.readFile(resolvedPath)
	if readError != nil {
		return CLIConfiguration{}, fmt.Errorf(configurationReadTemplateConstant, ErrMissingSolanaConfig, resolvedPath, readError)
	}

	var configuration CLIConfiguration
	if parseError := yaml.Unmarshal(contents, &configuration); parseError != nil {
		return CLIConfiguration{}, fmt.Errorf(configurationParseTemplateConstant, resolvedPath, parseError)
	}
	return configuration, nil
}

// Load merges settings with the Solana CLI configuration and reads the payer keypair.
// The CLI configuration is optional when settings supply both the RPC URL and the keypair path.
func (loader *Loader) Load(settings Settings) (Wallet, error) {
	rpcURL := strings.TrimSpace(settings.RPCURL)
	keypairPath := strings.TrimSpace(settings.KeypairPath)
	commitment := strings.TrimSpace(settings.Commitment)

	if len(rpcURL) == 0 || len(keypairPath) == 0 || len(commitment) == 0 {
		configuration, configurationError := loader.LoadCLIConfiguration(settings.ConfigurationPath)
		switch {
		case configurationError == nil:
			rpcURL = firstNonEmpty(rpcURL, configuration.JSONRPCURL)
			keypairPath = firstNonEmpty(keypairPath, configuration.KeypairPath)
			commitment = firstNonEmpty(commitment, configuration.Commitment)
		case len(rpcURL) == 0 || len(keypairPath) == 0:
			return Wallet{}, configurationError
		}
	}

	if len(rpcURL) == 0 {
		return Wallet{}, ErrMissingRPCURL
	}
	if len(keypairPath) == 0 {
		return Wallet{}, ErrMissingKeypairPath
	}

	resolvedKeypairPath, resolveError := loader.pathResolver.Resolve(keypairPath)
	if resolveError != nil {
		return Wallet{}, fmt.Errorf(keypairPathResolveTemplateConstant, resolveError)
	}
	payer, keypairError := loader.readKeypair(resolvedKeypairPath)
	if keypairError != nil {
		return Wallet{}, fmt.Errorf(keypairLoadTemplateConstant, resolvedKeypairPath, keypairError)
	}

	return Wallet{RPCURL: rpcURL, Commitment: commitment, Payer: payer}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue
		}
	}
	return ""
}
