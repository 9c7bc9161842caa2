package system

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-kit/pkg/solana"
	"github.com/code-payments/token-kit/pkg/solana/binary"
)

const (
	commandCreateAccount uint32 = 0

	createAccountDataSize = 4 + 2*8 + ed25519.PublicKeySize
)

// CreateAccount allocates size bytes at address, funded with lamports by
// funder, and assigns the account to owner.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) (solana.Instruction, error) {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	//
	// CreateAccount {
	//   lamports: u64,
	//   space: u64,
	//   owner: Pubkey,
	// }
	data := make([]byte, createAccountDataSize)

	var offset int
	if err := binary.PutUint32(data, commandCreateAccount, &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := binary.PutUint64(data, lamports, &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := binary.PutUint64(data, size, &offset); err != nil {
		return solana.Instruction{}, err
	}
	if err := binary.PutKey32(data, owner, &offset); err != nil {
		return solana.Instruction{}, errors.Wrap(err, "invalid owner")
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	), nil
}
