package token

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-kit/pkg/metrics"
	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/system"
)

const (
	metricsStructName = "token.client"
)

var (
	// ErrAccountNotFound indicates there is no account for the given address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTokenAccount indicates that a Solana account exists at the
	// given address, but it is either not initialized, or not configured correctly.
	ErrInvalidTokenAccount = errors.New("invalid token account")
)

type LookupStatus int

const (
	LookupStatusNotFound LookupStatus = iota
	LookupStatusFound
)

func (s LookupStatus) String() string {
	switch s {
	case LookupStatusFound:
		return "found"
	case LookupStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// LookupResult is the outcome of a successful lookup. Account is only set
// when Status is LookupStatusFound.
type LookupResult struct {
	Status  LookupStatus
	Account *Account
}

// Ledger is the external ledger the associated account resolver runs
// against.
type Ledger interface {
	// LookupAccount returns LookupStatusNotFound, without an error, when no
	// account exists at address.
	LookupAccount(ctx context.Context, address ed25519.PublicKey) (LookupResult, error)

	// SubmitTransaction signs txn with signers and submits it.
	SubmitTransaction(ctx context.Context, txn solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error)
}

// Client provides utilities for accessing token accounts.
type Client struct {
	log        *logrus.Entry
	sc         solana.Client
	programs   Programs
	commitment solana.Commitment
}

// NewClient creates a new Client.
func NewClient(sc solana.Client, programs Programs, commitment solana.Commitment) *Client {
	return &Client{
		log:        logrus.StandardLogger().WithField("type", "token/client"),
		sc:         sc,
		programs:   programs,
		commitment: commitment,
	}
}

// NewClientFromConfig creates a Client backed by the JSON RPC endpoint in
// config.
func NewClientFromConfig(config Config) (*Client, error) {
	programs, err := config.Programs()
	if err != nil {
		return nil, err
	}

	commitment, err := config.Commitment()
	if err != nil {
		return nil, err
	}

	return NewClient(solana.New(config.SolanaEndpoint), programs, commitment), nil
}

func (c *Client) Programs() Programs {
	return c.programs
}

// LookupAccount returns the token account at address.
//
// If an account exists but is not owned by the token program, or cannot be
// parsed as a token account, ErrInvalidTokenAccount is returned.
func (c *Client) LookupAccount(ctx context.Context, address ed25519.PublicKey) (LookupResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LookupAccount")
	defer tracer.End()

	result, err := c.lookupAccount(ctx, address)
	if err != nil {
		tracer.OnError(err)
	}
	tracer.AddAttribute("status", result.Status.String())
	return result, err
}

func (c *Client) lookupAccount(ctx context.Context, address ed25519.PublicKey) (LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return LookupResult{}, err
	}

	info, err := c.sc.GetAccountInfo(ctx, address, c.commitment)
	if err == solana.ErrNoAccountInfo {
		return LookupResult{Status: LookupStatusNotFound}, nil
	} else if err != nil {
		return LookupResult{}, errors.Wrap(err, "failed to get account info")
	}

	if !info.Owner.Equal(c.programs.Token) {
		return LookupResult{}, ErrInvalidTokenAccount
	}

	var account Account
	if err := account.Unmarshal(info.Data); err != nil {
		return LookupResult{}, errors.Wrap(ErrInvalidTokenAccount, err.Error())
	}
	if account.State == AccountStateUninitialized {
		return LookupResult{}, ErrInvalidTokenAccount
	}

	return LookupResult{Status: LookupStatusFound, Account: &account}, nil
}

// GetMint returns the mint state at address.
func (c *Client) GetMint(ctx context.Context, address ed25519.PublicKey) (*Mint, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetMint")
	defer tracer.End()

	mint, err := c.getMint(ctx, address)
	if err != nil {
		tracer.OnError(err)
	}
	return mint, err
}

func (c *Client) getMint(ctx context.Context, address ed25519.PublicKey) (*Mint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := c.sc.GetAccountInfo(ctx, address, c.commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !info.Owner.Equal(c.programs.Token) {
		return nil, errors.Errorf("mint not owned by token program: %s", base58.Encode(info.Owner))
	}

	var mint Mint
	if err := mint.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &mint, nil
}

// SubmitTransaction sets the latest blockhash on txn, signs it with signers
// and submits it.
func (c *Client) SubmitTransaction(ctx context.Context, txn solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitTransaction")
	defer tracer.End()

	sig, err := c.submitTransaction(ctx, txn, signers...)
	if err != nil {
		tracer.OnError(err)
	}
	return sig, err
}

func (c *Client) submitTransaction(ctx context.Context, txn solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	bh, err := c.sc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
	}
	txn.SetBlockhash(bh)

	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	sig, err := c.sc.SubmitTransaction(ctx, txn, c.commitment)
	if err != nil {
		c.log.WithError(err).WithField("signature", base58.Encode(sig[:])).Warn("failed to submit transaction")
		return sig, err
	}

	return sig, nil
}

// CreateMint funds a rent exempt account at mint, paid for by payer, and
// initializes it as a mint. freezeAuthority may be nil.
func (c *Client) CreateMint(
	ctx context.Context,
	payer, mint ed25519.PrivateKey,
	decimals byte,
	mintAuthority, freezeAuthority ed25519.PublicKey,
) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateMint")
	defer tracer.End()

	sig, err := c.createMint(ctx, payer, mint, decimals, mintAuthority, freezeAuthority)
	if err != nil {
		tracer.OnError(err)
	}
	return sig, err
}

func (c *Client) createMint(
	ctx context.Context,
	payer, mint ed25519.PrivateKey,
	decimals byte,
	mintAuthority, freezeAuthority ed25519.PublicKey,
) (solana.Signature, error) {
	if len(mint) != ed25519.PrivateKeySize {
		return solana.Signature{}, errors.Errorf("invalid mint key size: %d", len(mint))
	}

	initialize, err := c.programs.InitializeMint(mint.Public().(ed25519.PublicKey), decimals, mintAuthority, freezeAuthority)
	if err != nil {
		return solana.Signature{}, err
	}

	return c.createAndInitialize(ctx, payer, mint, MintSize, initialize)
}

// CreateTokenAccount funds a rent exempt account at account, paid for by
// payer, and initializes it as a token account of mint held by owner.
//
// Use GetOrCreateAssociatedAccount for the owner's canonical account.
func (c *Client) CreateTokenAccount(
	ctx context.Context,
	payer, account ed25519.PrivateKey,
	mint, owner ed25519.PublicKey,
) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateTokenAccount")
	defer tracer.End()

	sig, err := c.createTokenAccount(ctx, payer, account, mint, owner)
	if err != nil {
		tracer.OnError(err)
	}
	return sig, err
}

func (c *Client) createTokenAccount(
	ctx context.Context,
	payer, account ed25519.PrivateKey,
	mint, owner ed25519.PublicKey,
) (solana.Signature, error) {
	if len(account) != ed25519.PrivateKeySize {
		return solana.Signature{}, errors.Errorf("invalid account key size: %d", len(account))
	}

	initialize := c.programs.InitializeAccount(account.Public().(ed25519.PublicKey), mint, owner)
	return c.createAndInitialize(ctx, payer, account, AccountSize, initialize)
}

func (c *Client) createAndInitialize(
	ctx context.Context,
	payer, account ed25519.PrivateKey,
	size uint64,
	initialize solana.Instruction,
) (solana.Signature, error) {
	if len(payer) != ed25519.PrivateKeySize {
		return solana.Signature{}, errors.Errorf("invalid payer key size: %d", len(payer))
	}

	lamports, err := c.sc.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get rent exempt balance")
	}

	payerKey := payer.Public().(ed25519.PublicKey)
	accountKey := account.Public().(ed25519.PublicKey)

	create, err := system.CreateAccount(payerKey, accountKey, c.programs.Token, lamports, size)
	if err != nil {
		return solana.Signature{}, err
	}

	txn := solana.NewTransaction(payerKey, create, initialize)
	return c.submitTransaction(ctx, txn, payer, account)
}
