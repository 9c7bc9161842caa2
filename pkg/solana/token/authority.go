package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/binary"
)

type AuthorityType byte

const (
	AuthorityTypeMintTokens AuthorityType = iota
	AuthorityTypeFreezeAccount
	AuthorityTypeAccountOwner
	AuthorityTypeCloseAccount
)

func (t AuthorityType) Valid() bool {
	return t <= AuthorityTypeCloseAccount
}

func (t AuthorityType) String() string {
	switch t {
	case AuthorityTypeMintTokens:
		return "mint_tokens"
	case AuthorityTypeFreezeAccount:
		return "freeze_account"
	case AuthorityTypeAccountOwner:
		return "account_owner"
	case AuthorityTypeCloseAccount:
		return "close_account"
	default:
		return "unknown"
	}
}

// NewAuthority is the authority SetAuthority assigns: either AuthorityNone,
// which removes the authority, or AuthorityKey.
type NewAuthority interface {
	isNewAuthority()
}

// AuthorityNone removes the authority.
type AuthorityNone struct{}

// AuthorityKey replaces the authority with Key.
type AuthorityKey struct {
	Key ed25519.PublicKey
}

func (AuthorityNone) isNewAuthority() {}
func (AuthorityKey) isNewAuthority()  {}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L128-L139
func (p Programs) SetAuthority(account, currentAuthority ed25519.PublicKey, authorityType AuthorityType, newAuthority NewAuthority) (solana.Instruction, error) {
	// Sets a new authority of a mint or account.
	//
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint or account to change the authority of.
	//   1. `[signer]` The current authority of the mint or account.
	//
	// Data is [command, type] when the authority is removed, and
	// [command, type, 1, key] when it is replaced.
	if !authorityType.Valid() {
		return solana.Instruction{}, errors.Wrapf(ErrInvalidAuthorityType, "%d", authorityType)
	}

	var data []byte
	var offset int
	switch a := newAuthority.(type) {
	case AuthorityNone:
		data = make([]byte, setAuthorityNoneSize)
		if err := binary.PutUint8(data, byte(CommandSetAuthority), &offset); err != nil {
			return solana.Instruction{}, err
		}
		if err := binary.PutUint8(data, byte(authorityType), &offset); err != nil {
			return solana.Instruction{}, err
		}
	case AuthorityKey:
		data = make([]byte, setAuthorityKeySize)
		if err := binary.PutUint8(data, byte(CommandSetAuthority), &offset); err != nil {
			return solana.Instruction{}, err
		}
		if err := binary.PutUint8(data, byte(authorityType), &offset); err != nil {
			return solana.Instruction{}, err
		}
		if err := binary.PutOptionalKey32(data, a.Key, &offset, instructionOptionPrefix); err != nil {
			return solana.Instruction{}, errors.Wrap(err, "invalid new authority")
		}
		if data[2] != 1 {
			return solana.Instruction{}, errors.Wrap(ErrMissingNewAuthority, "empty authority key")
		}
	case nil:
		return solana.Instruction{}, ErrMissingNewAuthority
	default:
		return solana.Instruction{}, errors.Errorf("unsupported new authority: %T", newAuthority)
	}

	return solana.NewInstruction(
		p.Token,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(currentAuthority, true),
	), nil
}

type DecompiledSetAuthority struct {
	Account          ed25519.PublicKey
	CurrentAuthority ed25519.PublicKey
	Type             AuthorityType
	NewAuthority     NewAuthority
}

// DecompileSetAuthority accepts both the 2 byte form and the 3 byte form with
// a zero option flag as a removal.
func (p Programs) DecompileSetAuthority(m solana.Message, index int) (*DecompiledSetAuthority, error) {
	i, err := p.compiledInstruction(m, index, CommandSetAuthority)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) < 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	var newAuthority NewAuthority
	switch {
	case len(i.Data) == setAuthorityNoneSize:
		newAuthority = AuthorityNone{}
	case len(i.Data) == setAuthorityNoneSize+1 && i.Data[2] == 0:
		newAuthority = AuthorityNone{}
	case len(i.Data) == setAuthorityKeySize && i.Data[2] == 1:
		var key ed25519.PublicKey
		offset := 2
		if err := binary.GetOptionalKey32(i.Data, &key, &offset, instructionOptionPrefix); err != nil {
			return nil, err
		}
		newAuthority = AuthorityKey{Key: key}
	default:
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	authorityType := AuthorityType(i.Data[1])
	if !authorityType.Valid() {
		return nil, errors.Wrapf(ErrInvalidAuthorityType, "%d", authorityType)
	}

	return &DecompiledSetAuthority{
		Account:          m.AccountAt(i, 0),
		CurrentAuthority: m.AccountAt(i, 1),
		Type:             authorityType,
		NewAuthority:     newAuthority,
	}, nil
}
