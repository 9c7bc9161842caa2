package token

import (
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/binary"
)

type Command byte

const (
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	CommandInitializeMultisig
	CommandTransfer
	CommandApprove
	CommandRevoke
	CommandSetAuthority
	CommandMintTo
	CommandBurn
	CommandCloseAccount
	CommandFreezeAccount
	CommandThawAccount
	CommandTransfer2
	CommandApprove2
	CommandMintTo2
	CommandBurn2

	CommandUnknown = Command(math.MaxUint8)
)

// Token program error codes, as returned in a solana.CustomError.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/error.rs
const (
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
	ErrorFixedSupply
	ErrorAlreadyInUse
	ErrorInvalidNumberOfProvidedSigners
	ErrorInvalidNumberOfRequiredSigners
	ErrorUninitializedState
	ErrorNativeNotSupported
	ErrorNonNativeHasBalance
	ErrorInvalidInstruction
	ErrorInvalidState
	ErrorOverflow
	ErrorAuthorityTypeNotSupported
	ErrorMintCannotFreeze
	ErrorAccountFrozen
	ErrorMintDecimalsMismatch
)

var (
	ErrInvalidAuthorityType = errors.New("invalid authority type")
	ErrMissingNewAuthority  = errors.New("missing new authority")
)

const (
	initializeMintDataSize  = 1 + 1 + ed25519.PublicKeySize + 1 + ed25519.PublicKeySize
	amountDataSize          = 1 + 8
	setAuthorityNoneSize    = 2
	setAuthorityKeySize     = 3 + ed25519.PublicKeySize
	instructionOptionPrefix = 1
)

// GetCommand returns the command of the token instruction at index.
func (p Programs) GetCommand(m solana.Message, index int) (Command, error) {
	i, err := m.InstructionAt(index, p.Token)
	if err != nil {
		return CommandUnknown, err
	}
	if len(i.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(i.Data[0]), nil
}

func (p Programs) compiledInstruction(m solana.Message, index int, command Command) (solana.CompiledInstruction, error) {
	i, err := m.InstructionAt(index, p.Token)
	if err != nil {
		return i, err
	}
	if len(i.Data) == 0 || Command(i.Data[0]) != command {
		return i, solana.ErrIncorrectInstruction
	}
	return i, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L27-L40
func (p Programs) InitializeMint(mint ed25519.PublicKey, decimals byte, mintAuthority, freezeAuthority ed25519.PublicKey) (solana.Instruction, error) {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	//   1. `[]` Rent sysvar
	//
	// InitializeMint {
	//   decimals: u8,
	//   mint_authority: Pubkey,
	//   freeze_authority: COption<Pubkey>,
	// }
	data := make([]byte, initializeMintDataSize)

	var offset int
	if err := binary.PutUint8(data, byte(CommandInitializeMint), &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := binary.PutUint8(data, decimals, &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := binary.PutKey32(data, mintAuthority, &offset); err != nil {
		return solana.Instruction{}, errors.Wrap(err, "invalid mint authority")
	}
	if err := binary.PutOptionalKey32(data, freezeAuthority, &offset, instructionOptionPrefix); err != nil {
		return solana.Instruction{}, errors.Wrap(err, "invalid freeze authority")
	}

	return solana.NewInstruction(
		p.Token,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(p.RentSysVar, false),
	), nil
}

type DecompiledInitializeMint struct {
	Mint            ed25519.PublicKey
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

func (p Programs) DecompileInitializeMint(m solana.Message, index int) (*DecompiledInitializeMint, error) {
	i, err := p.compiledInstruction(m, index, CommandInitializeMint)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != initializeMintDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	v := &DecompiledInitializeMint{
		Mint: m.AccountAt(i, 0),
	}

	offset := 1
	if err := binary.GetUint8(i.Data, &v.Decimals, &offset); err != nil {
		return nil, err
	}
	if err := binary.GetKey32(i.Data, &v.MintAuthority, &offset); err != nil {
		return nil, err
	}
	if err := binary.GetOptionalKey32(i.Data, &v.FreezeAuthority, &offset, instructionOptionPrefix); err != nil {
		return nil, err
	}

	return v, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L41-L55
func (p Programs) InitializeAccount(account, mint, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]`  The account to initialize.
	//   1. `[]` The mint this account will be associated with.
	//   2. `[]` The new account's owner/multisignature.
	//   3. `[]` Rent sysvar
	return solana.NewInstruction(
		p.Token,
		[]byte{byte(CommandInitializeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(p.RentSysVar, false),
	)
}

type DecompiledInitializeAccount struct {
	Account ed25519.PublicKey
	Mint    ed25519.PublicKey
	Owner   ed25519.PublicKey
}

func (p Programs) DecompileInitializeAccount(m solana.Message, index int) (*DecompiledInitializeAccount, error) {
	i, err := p.compiledInstruction(m, index, CommandInitializeAccount)
	if err != nil {
		return nil, err
	}
	if len(i.Data) != 1 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != 4 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if !m.AccountAt(i, 3).Equal(p.RentSysVar) {
		return nil, errors.New("invalid rent sysvar")
	}

	return &DecompiledInitializeAccount{
		Account: m.AccountAt(i, 0),
		Mint:    m.AccountAt(i, 1),
		Owner:   m.AccountAt(i, 2),
	}, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func (p Programs) Transfer(source, dest, owner ed25519.PublicKey, amount Amount, multiSigners ...ed25519.PublicKey) (solana.Instruction, error) {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner/delegate.
	//   3. ..3+M `[signer]` M additional signer accounts.
	data, err := amountData(CommandTransfer, amount)
	if err != nil {
		return solana.Instruction{}, err
	}

	accounts := make([]solana.AccountMeta, 3+len(multiSigners))
	accounts[0] = solana.NewAccountMeta(source, false)
	accounts[1] = solana.NewAccountMeta(dest, false)
	accounts[2] = solana.NewReadonlyAccountMeta(owner, true)
	for i := 0; i < len(multiSigners); i++ {
		accounts[3+i] = solana.NewReadonlyAccountMeta(multiSigners[i], true)
	}

	return solana.NewInstruction(
		p.Token,
		data,
		accounts...,
	), nil
}

type DecompiledTransfer struct {
	Source       ed25519.PublicKey
	Destination  ed25519.PublicKey
	Owner        ed25519.PublicKey
	MultiSigners []ed25519.PublicKey
	Amount       Amount
}

func (p Programs) DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	i, err := p.compiledInstruction(m, index, CommandTransfer)
	if err != nil {
		return nil, err
	}
	// note: we do < 3 instead of != 3 in order to support multisig cases.
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	amount, err := decodeAmountData(i.Data)
	if err != nil {
		return nil, err
	}

	v := &DecompiledTransfer{
		Source:      m.AccountAt(i, 0),
		Destination: m.AccountAt(i, 1),
		Owner:       m.AccountAt(i, 2),
		Amount:      amount,
	}
	for j := 3; j < len(i.Accounts); j++ {
		v.MultiSigners = append(v.MultiSigners, m.AccountAt(i, j))
	}
	return v, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L140-L153
func (p Programs) MintTo(mint, dest, authority ed25519.PublicKey, amount Amount) (solana.Instruction, error) {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to mint tokens to.
	//   2. `[signer]` The mint's minting authority.
	data, err := amountData(CommandMintTo, amount)
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		p.Token,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	), nil
}

type DecompiledMintTo struct {
	Mint        ed25519.PublicKey
	Destination ed25519.PublicKey
	Authority   ed25519.PublicKey
	Amount      Amount
}

func (p Programs) DecompileMintTo(m solana.Message, index int) (*DecompiledMintTo, error) {
	i, err := p.compiledInstruction(m, index, CommandMintTo)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	amount, err := decodeAmountData(i.Data)
	if err != nil {
		return nil, err
	}

	return &DecompiledMintTo{
		Mint:        m.AccountAt(i, 0),
		Destination: m.AccountAt(i, 1),
		Authority:   m.AccountAt(i, 2),
		Amount:      amount,
	}, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L183-L197
func (p Programs) CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	// Close an account by transferring all its SOL to the destination account.
	// Non-native accounts may only be closed if its token amount is zero.
	//
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to close.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The account's owner.
	return solana.NewInstruction(
		p.Token,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

type DecompiledCloseAccount struct {
	Account     ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
}

func (p Programs) DecompileCloseAccount(m solana.Message, index int) (*DecompiledCloseAccount, error) {
	i, err := p.compiledInstruction(m, index, CommandCloseAccount)
	if err != nil {
		return nil, err
	}
	if len(i.Data) != 1 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	// note: we do < 3 instead of != 3 in order to support multisig cases.
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledCloseAccount{
		Account:     m.AccountAt(i, 0),
		Destination: m.AccountAt(i, 1),
		Owner:       m.AccountAt(i, 2),
	}, nil
}

func amountData(command Command, amount Amount) ([]byte, error) {
	data := make([]byte, amountDataSize)

	var offset int
	if err := binary.PutUint8(data, byte(command), &offset); err != nil {
		return nil, err
	}
	if err := binary.PutUint64(data, uint64(amount), &offset); err != nil {
		return nil, err
	}
	return data, nil
}

func decodeAmountData(data []byte) (Amount, error) {
	if len(data) != amountDataSize {
		return 0, errors.Errorf("invalid instruction data size: %d", len(data))
	}

	var amount uint64
	offset := 1
	if err := binary.GetUint64(data, &amount, &offset); err != nil {
		return 0, err
	}
	return Amount(amount), nil
}
