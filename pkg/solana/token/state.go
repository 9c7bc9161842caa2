package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-kit/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L37
const MintSize = 82

// Account state uses a 4 byte COption tag, unlike instruction data.
const stateOptionPrefix = 4

var ErrInvalidStateSize = errors.New("invalid state size")

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() ([]byte, error) {
	b := make([]byte, AccountSize)

	var offset int
	if err := binary.PutKey32(b, a.Mint, &offset); err != nil {
		return nil, errors.Wrap(err, "invalid mint")
	}
	if err := binary.PutKey32(b, a.Owner, &offset); err != nil {
		return nil, errors.Wrap(err, "invalid owner")
	}
	if err := binary.PutUint64(b, a.Amount, &offset); err != nil {
		return nil, err
	}
	if err := binary.PutOptionalKey32(b, a.Delegate, &offset, stateOptionPrefix); err != nil {
		return nil, errors.Wrap(err, "invalid delegate")
	}
	if err := binary.PutUint8(b, byte(a.State), &offset); err != nil {
		return nil, err
	}
	if err := binary.PutOptionalUint64(b, a.IsNative, &offset, stateOptionPrefix); err != nil {
		return nil, err
	}
	if err := binary.PutUint64(b, a.DelegatedAmount, &offset); err != nil {
		return nil, err
	}
	if err := binary.PutOptionalKey32(b, a.CloseAuthority, &offset, stateOptionPrefix); err != nil {
		return nil, errors.Wrap(err, "invalid close authority")
	}

	return b, nil
}

func (a *Account) Unmarshal(b []byte) error {
	if len(b) != AccountSize {
		return errors.Wrapf(ErrInvalidStateSize, "account: %d", len(b))
	}

	*a = Account{}

	var state uint8
	var offset int
	for _, err := range []error{
		binary.GetKey32(b, &a.Mint, &offset),
		binary.GetKey32(b, &a.Owner, &offset),
		binary.GetUint64(b, &a.Amount, &offset),
		binary.GetOptionalKey32(b, &a.Delegate, &offset, stateOptionPrefix),
		binary.GetUint8(b, &state, &offset),
		binary.GetOptionalUint64(b, &a.IsNative, &offset, stateOptionPrefix),
		binary.GetUint64(b, &a.DelegatedAmount, &offset),
		binary.GetOptionalKey32(b, &a.CloseAuthority, &offset, stateOptionPrefix),
	} {
		if err != nil {
			return err
		}
	}
	a.State = AccountState(state)

	return nil
}

type Mint struct {
	// Optional authority used to mint new tokens.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() ([]byte, error) {
	b := make([]byte, MintSize)

	var initialized byte
	if m.IsInitialized {
		initialized = 1
	}

	var offset int
	if err := binary.PutOptionalKey32(b, m.MintAuthority, &offset, stateOptionPrefix); err != nil {
		return nil, errors.Wrap(err, "invalid mint authority")
	}
	if err := binary.PutUint64(b, m.Supply, &offset); err != nil {
		return nil, err
	}
	if err := binary.PutUint8(b, m.Decimals, &offset); err != nil {
		return nil, err
	}
	if err := binary.PutUint8(b, initialized, &offset); err != nil {
		return nil, err
	}
	if err := binary.PutOptionalKey32(b, m.FreezeAuthority, &offset, stateOptionPrefix); err != nil {
		return nil, errors.Wrap(err, "invalid freeze authority")
	}

	return b, nil
}

func (m *Mint) Unmarshal(b []byte) error {
	if len(b) != MintSize {
		return errors.Wrapf(ErrInvalidStateSize, "mint: %d", len(b))
	}

	*m = Mint{}

	var initialized uint8
	var offset int
	for _, err := range []error{
		binary.GetOptionalKey32(b, &m.MintAuthority, &offset, stateOptionPrefix),
		binary.GetUint64(b, &m.Supply, &offset),
		binary.GetUint8(b, &m.Decimals, &offset),
		binary.GetUint8(b, &initialized, &offset),
		binary.GetOptionalKey32(b, &m.FreezeAuthority, &offset, stateOptionPrefix),
	} {
		if err != nil {
			return err
		}
	}
	m.IsInitialized = initialized == 1

	return nil
}
