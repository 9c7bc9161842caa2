package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/binary"
)

// GetAssociatedAccount returns the associated account address for an SPL
// token using DefaultPrograms.
func GetAssociatedAccount(owner, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return DefaultPrograms.GetAssociatedAccount(owner, mint)
}

// GetAssociatedAccount returns the associated account address of owner for
// mint.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func (p Programs) GetAssociatedAccount(owner, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	if len(owner) != ed25519.PublicKeySize {
		return nil, errors.Wrap(binary.ErrInvalidKeySize, "invalid owner")
	}
	if len(mint) != ed25519.PublicKeySize {
		return nil, errors.Wrap(binary.ErrInvalidKeySize, "invalid mint")
	}

	return solana.FindProgramAddress(
		p.AssociatedToken,
		owner,
		p.Token,
		mint,
	)
}

// CreateAssociatedTokenAccount derives the associated account of owner for
// mint and returns the instruction creating it, along with its address.
func (p Programs) CreateAssociatedTokenAccount(payer, owner, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := p.GetAssociatedAccount(owner, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	return p.CreateAssociatedTokenAccountAt(payer, addr, owner, mint), addr, nil
}

// CreateAssociatedTokenAccountAt returns the instruction creating the
// associated account at a previously derived address.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/0639953c7dd0f5228c3ceda3ba68fece3b46ff1d/associated-token-account/program/src/lib.rs#L54
func (p Programs) CreateAssociatedTokenAccountAt(payer, address, owner, mint ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable,signer]` Funding account
	//   1. `[writable]` Associated token account address
	//   2. `[]` Wallet address for the new associated token account
	//   3. `[]` The token mint for the new associated token account
	//   4. `[]` System program
	//   5. `[]` SPL Token program
	//   6. `[]` Rent sysvar
	return solana.NewInstruction(
		p.AssociatedToken,
		[]byte{},
		solana.NewAccountMeta(payer, true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(p.System, false),
		solana.NewReadonlyAccountMeta(p.Token, false),
		solana.NewReadonlyAccountMeta(p.RentSysVar, false),
	)
}

type DecompiledCreateAssociatedAccount struct {
	Payer   ed25519.PublicKey
	Address ed25519.PublicKey
	Owner   ed25519.PublicKey
	Mint    ed25519.PublicKey
}

func (p Programs) DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	i, err := m.InstructionAt(index, p.AssociatedToken)
	if err != nil {
		return nil, err
	}
	if len(i.Data) != 0 {
		return nil, errors.Errorf("unexpected data")
	}
	if len(i.Accounts) != 7 {
		return nil, errors.Errorf("invalid number of accounts: %d (expected %d)", len(i.Accounts), 7)
	}

	if !m.AccountAt(i, 4).Equal(p.System) {
		return nil, errors.Errorf("system program key mismatch")
	}
	if !m.AccountAt(i, 5).Equal(p.Token) {
		return nil, errors.Errorf("token program key mismatch")
	}
	if !m.AccountAt(i, 6).Equal(p.RentSysVar) {
		return nil, errors.Errorf("rent sysvar mismatch")
	}

	return &DecompiledCreateAssociatedAccount{
		Payer:   m.AccountAt(i, 0),
		Address: m.AccountAt(i, 1),
		Owner:   m.AccountAt(i, 2),
		Mint:    m.AccountAt(i, 3),
	}, nil
}
