package token

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/system"
)

// Programs are the on-chain program identifiers instructions are built
// against.
type Programs struct {
	Token           ed25519.PublicKey
	AssociatedToken ed25519.PublicKey
	System          ed25519.PublicKey
	RentSysVar      ed25519.PublicKey
}

var (
	// DefaultPrograms targets the SPL token program.
	//
	// Token: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
	// Associated token: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
	DefaultPrograms Programs

	// Token2022Programs targets the Token-2022 program, which shares the
	// instruction layouts used here.
	//
	// Token: TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb
	Token2022Programs Programs
)

func init() {
	DefaultPrograms = Programs{
		Token:           mustDecode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		AssociatedToken: mustDecode("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"),
		System:          system.ProgramKey,
		RentSysVar:      system.RentSysVar,
	}

	Token2022Programs = DefaultPrograms
	Token2022Programs.Token = mustDecode("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	_ = viper.BindEnv(configSolanaEndpoint, "SOLANA_RPC_ENDPOINT")
	_ = viper.BindEnv(configSolanaCommitment, "SOLANA_COMMITMENT")
	_ = viper.BindEnv(configTokenProgram, "TOKEN_PROGRAM")
	_ = viper.BindEnv(configAssociatedTokenProgram, "ASSOCIATED_TOKEN_PROGRAM")
}

func mustDecode(s string) ed25519.PublicKey {
	b, err := base58.Decode(s)
	if err != nil {
		panic(err)
	}
	if len(b) != ed25519.PublicKeySize {
		panic(errors.Errorf("invalid program key size: %d", len(b)))
	}
	return b
}

const (
	configSolanaEndpoint         = "solana_rpc_endpoint"
	configSolanaCommitment       = "solana_commitment"
	configTokenProgram           = "token_program"
	configAssociatedTokenProgram = "associated_token_program"
)

// Config is the token kit configuration. Program fields are base58 encoded;
// empty values fall back to DefaultPrograms.
type Config struct {
	SolanaEndpoint         string `mapstructure:"solana_rpc_endpoint"`
	SolanaCommitment       string `mapstructure:"solana_commitment"`
	TokenProgram           string `mapstructure:"token_program"`
	AssociatedTokenProgram string `mapstructure:"associated_token_program"`
}

var defaultConfig = Config{
	SolanaEndpoint:   string(solana.EnvironmentProd),
	SolanaCommitment: solana.CommitmentConfirmed.Commitment,
}

// LoadConfig reads the configuration from v. A nil v uses the global viper
// instance, which has the environment variables bound at init.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	} else {
		_ = v.BindEnv(configSolanaEndpoint, "SOLANA_RPC_ENDPOINT")
		_ = v.BindEnv(configSolanaCommitment, "SOLANA_COMMITMENT")
		_ = v.BindEnv(configTokenProgram, "TOKEN_PROGRAM")
		_ = v.BindEnv(configAssociatedTokenProgram, "ASSOCIATED_TOKEN_PROGRAM")
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	if config.SolanaEndpoint == "" {
		config.SolanaEndpoint = defaultConfig.SolanaEndpoint
	}
	if config.SolanaCommitment == "" {
		config.SolanaCommitment = defaultConfig.SolanaCommitment
	}

	return config, nil
}

// LoadPrograms is shorthand for LoadConfig followed by Config.Programs.
func LoadPrograms(v *viper.Viper) (Programs, error) {
	config, err := LoadConfig(v)
	if err != nil {
		return Programs{}, err
	}
	return config.Programs()
}

// Programs overlays the configured program ids onto DefaultPrograms.
func (c Config) Programs() (Programs, error) {
	programs := DefaultPrograms

	if c.TokenProgram != "" {
		key, err := decodeProgramKey(c.TokenProgram)
		if err != nil {
			return Programs{}, errors.Wrap(err, "invalid token program")
		}
		programs.Token = key
	}

	if c.AssociatedTokenProgram != "" {
		key, err := decodeProgramKey(c.AssociatedTokenProgram)
		if err != nil {
			return Programs{}, errors.Wrap(err, "invalid associated token program")
		}
		programs.AssociatedToken = key
	}

	return programs, nil
}

func (c Config) Commitment() (solana.Commitment, error) {
	switch c.SolanaCommitment {
	case solana.CommitmentProcessed.Commitment:
		return solana.CommitmentProcessed, nil
	case solana.CommitmentConfirmed.Commitment:
		return solana.CommitmentConfirmed, nil
	case solana.CommitmentFinalized.Commitment:
		return solana.CommitmentFinalized, nil
	default:
		return solana.Commitment{}, errors.Errorf("unknown commitment: %q", c.SolanaCommitment)
	}
}

func decodeProgramKey(s string) (ed25519.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid key size: %d", len(b))
	}
	return b, nil
}
