package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/token-kit/pkg/solana"
	kitbinary "github.com/code-payments/token-kit/pkg/solana/binary"
	"github.com/code-payments/token-kit/pkg/testutil"
)

func assertMeta(t *testing.T, meta solana.AccountMeta, key ed25519.PublicKey, signer, writable bool) {
	t.Helper()
	assert.EqualValues(t, key, meta.PublicKey)
	assert.Equal(t, signer, meta.IsSigner, "signer")
	assert.Equal(t, writable, meta.IsWritable, "writable")
}

func TestInitializeMint(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	mint, mintAuthority, freezeAuthority := keys[0], keys[1], keys[2]

	instruction, err := DefaultPrograms.InitializeMint(mint, 6, mintAuthority, freezeAuthority)
	require.NoError(t, err)

	assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
	require.Len(t, instruction.Data, 67)
	assert.EqualValues(t, CommandInitializeMint, instruction.Data[0])
	assert.EqualValues(t, 6, instruction.Data[1])
	assert.EqualValues(t, mintAuthority, instruction.Data[2:34])
	assert.EqualValues(t, 1, instruction.Data[34])
	assert.EqualValues(t, freezeAuthority, instruction.Data[35:67])

	require.Len(t, instruction.Accounts, 2)
	assertMeta(t, instruction.Accounts[0], mint, false, true)
	assertMeta(t, instruction.Accounts[1], DefaultPrograms.RentSysVar, false, false)

	decompiled, err := DefaultPrograms.DecompileInitializeMint(solana.NewTransaction(keys[1], instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, mint, decompiled.Mint)
	assert.EqualValues(t, 6, decompiled.Decimals)
	assert.EqualValues(t, mintAuthority, decompiled.MintAuthority)
	assert.EqualValues(t, freezeAuthority, decompiled.FreezeAuthority)
}

func TestInitializeMint_NoFreezeAuthority(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)

	instruction, err := DefaultPrograms.InitializeMint(keys[0], 0, keys[1], nil)
	require.NoError(t, err)
	require.Len(t, instruction.Data, 67)
	assert.EqualValues(t, 0, instruction.Data[34])
	assert.Equal(t, make([]byte, 32), instruction.Data[35:67])

	decompiled, err := DefaultPrograms.DecompileInitializeMint(solana.NewTransaction(keys[1], instruction).Message, 0)
	require.NoError(t, err)
	assert.Nil(t, decompiled.FreezeAuthority)
}

func TestInitializeMint_InvalidKeys(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)

	_, err := DefaultPrograms.InitializeMint(keys[0], 0, make([]byte, 31), nil)
	assert.True(t, errors.Is(err, kitbinary.ErrInvalidKeySize))

	_, err = DefaultPrograms.InitializeMint(keys[0], 0, keys[1], make([]byte, 33))
	assert.True(t, errors.Is(err, kitbinary.ErrInvalidKeySize))
}

func TestInitializeAccount(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	instruction := DefaultPrograms.InitializeAccount(keys[0], keys[1], keys[2])

	assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
	assert.Equal(t, []byte{1}, instruction.Data)
	require.Len(t, instruction.Accounts, 4)
	assertMeta(t, instruction.Accounts[0], keys[0], false, true)
	assertMeta(t, instruction.Accounts[1], keys[1], false, false)
	assertMeta(t, instruction.Accounts[2], keys[2], false, false)
	assertMeta(t, instruction.Accounts[3], DefaultPrograms.RentSysVar, false, false)

	decompiled, err := DefaultPrograms.DecompileInitializeAccount(solana.NewTransaction(keys[2], instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], decompiled.Account)
	assert.EqualValues(t, keys[1], decompiled.Mint)
	assert.EqualValues(t, keys[2], decompiled.Owner)
}

func TestTransfer(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	source, dest, owner := keys[0], keys[1], keys[2]

	instruction, err := DefaultPrograms.Transfer(source, dest, owner, 1000)
	require.NoError(t, err)

	assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
	assert.Equal(t, []byte{3, 0xe8, 0x03, 0, 0, 0, 0, 0, 0}, instruction.Data)
	require.Len(t, instruction.Accounts, 3)
	assertMeta(t, instruction.Accounts[0], source, false, true)
	assertMeta(t, instruction.Accounts[1], dest, false, true)
	assertMeta(t, instruction.Accounts[2], owner, true, false)

	decompiled, err := DefaultPrograms.DecompileTransfer(solana.NewTransaction(owner, instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, source, decompiled.Source)
	assert.EqualValues(t, dest, decompiled.Destination)
	assert.EqualValues(t, owner, decompiled.Owner)
	assert.Empty(t, decompiled.MultiSigners)
	assert.EqualValues(t, 1000, decompiled.Amount)
}

func TestTransfer_MultiSigners(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	for n := 0; n < 5; n++ {
		signers := testutil.GenerateSolanaKeys(t, n)

		instruction, err := DefaultPrograms.Transfer(keys[0], keys[1], keys[2], math.MaxUint64, signers...)
		require.NoError(t, err)

		require.Len(t, instruction.Accounts, 3+n)
		assertMeta(t, instruction.Accounts[0], keys[0], false, true)
		assertMeta(t, instruction.Accounts[1], keys[1], false, true)
		assertMeta(t, instruction.Accounts[2], keys[2], true, false)
		for i, signer := range signers {
			assertMeta(t, instruction.Accounts[3+i], signer, true, false)
		}

		assert.EqualValues(t, uint64(math.MaxUint64), binary.LittleEndian.Uint64(instruction.Data[1:]))

		decompiled, err := DefaultPrograms.DecompileTransfer(solana.NewTransaction(keys[2], instruction).Message, 0)
		require.NoError(t, err)
		require.Len(t, decompiled.MultiSigners, n)
		for i, signer := range signers {
			assert.EqualValues(t, signer, decompiled.MultiSigners[i])
		}
	}
}

func TestMintTo(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	mint, dest, authority := keys[0], keys[1], keys[2]

	amount, err := ParseAmount("1000000000000")
	require.NoError(t, err)

	instruction, err := DefaultPrograms.MintTo(mint, dest, authority, amount)
	require.NoError(t, err)

	assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
	require.Len(t, instruction.Data, 9)
	assert.EqualValues(t, CommandMintTo, instruction.Data[0])
	assert.EqualValues(t, 1000000000000, binary.LittleEndian.Uint64(instruction.Data[1:]))
	require.Len(t, instruction.Accounts, 3)
	assertMeta(t, instruction.Accounts[0], mint, false, true)
	assertMeta(t, instruction.Accounts[1], dest, false, true)
	assertMeta(t, instruction.Accounts[2], authority, true, false)

	decompiled, err := DefaultPrograms.DecompileMintTo(solana.NewTransaction(authority, instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, mint, decompiled.Mint)
	assert.EqualValues(t, dest, decompiled.Destination)
	assert.EqualValues(t, authority, decompiled.Authority)
	assert.Equal(t, amount, decompiled.Amount)
}

func TestCloseAccount(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	instruction := DefaultPrograms.CloseAccount(keys[0], keys[1], keys[2])

	assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
	assert.Equal(t, []byte{9}, instruction.Data)
	require.Len(t, instruction.Accounts, 3)
	assertMeta(t, instruction.Accounts[0], keys[0], false, true)
	assertMeta(t, instruction.Accounts[1], keys[1], false, true)
	assertMeta(t, instruction.Accounts[2], keys[2], true, false)

	decompiled, err := DefaultPrograms.DecompileCloseAccount(solana.NewTransaction(keys[2], instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], decompiled.Account)
	assert.EqualValues(t, keys[1], decompiled.Destination)
	assert.EqualValues(t, keys[2], decompiled.Owner)
}

func TestSetAuthority(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	account, current, next := keys[0], keys[1], keys[2]

	for _, authorityType := range []AuthorityType{
		AuthorityTypeMintTokens,
		AuthorityTypeFreezeAccount,
		AuthorityTypeAccountOwner,
		AuthorityTypeCloseAccount,
	} {
		instruction, err := DefaultPrograms.SetAuthority(account, current, authorityType, AuthorityKey{Key: next})
		require.NoError(t, err)

		assert.EqualValues(t, DefaultPrograms.Token, instruction.Program)
		require.Len(t, instruction.Data, 35)
		assert.EqualValues(t, CommandSetAuthority, instruction.Data[0])
		assert.EqualValues(t, authorityType, instruction.Data[1])
		assert.EqualValues(t, 1, instruction.Data[2])
		assert.EqualValues(t, next, instruction.Data[3:])

		require.Len(t, instruction.Accounts, 2)
		assertMeta(t, instruction.Accounts[0], account, false, true)
		assertMeta(t, instruction.Accounts[1], current, true, false)

		decompiled, err := DefaultPrograms.DecompileSetAuthority(solana.NewTransaction(current, instruction).Message, 0)
		require.NoError(t, err)
		assert.EqualValues(t, account, decompiled.Account)
		assert.EqualValues(t, current, decompiled.CurrentAuthority)
		assert.Equal(t, authorityType, decompiled.Type)
		require.IsType(t, AuthorityKey{}, decompiled.NewAuthority)
		assert.EqualValues(t, next, decompiled.NewAuthority.(AuthorityKey).Key)

		instruction, err = DefaultPrograms.SetAuthority(account, current, authorityType, AuthorityNone{})
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(CommandSetAuthority), byte(authorityType)}, instruction.Data)

		decompiled, err = DefaultPrograms.DecompileSetAuthority(solana.NewTransaction(current, instruction).Message, 0)
		require.NoError(t, err)
		assert.Equal(t, AuthorityNone{}, decompiled.NewAuthority)
	}
}

func TestSetAuthority_Invalid(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	_, err := DefaultPrograms.SetAuthority(keys[0], keys[1], AuthorityType(4), AuthorityNone{})
	assert.True(t, errors.Is(err, ErrInvalidAuthorityType))

	_, err = DefaultPrograms.SetAuthority(keys[0], keys[1], AuthorityTypeAccountOwner, nil)
	assert.Equal(t, ErrMissingNewAuthority, err)

	_, err = DefaultPrograms.SetAuthority(keys[0], keys[1], AuthorityTypeAccountOwner, AuthorityKey{})
	assert.True(t, errors.Is(err, ErrMissingNewAuthority))

	_, err = DefaultPrograms.SetAuthority(keys[0], keys[1], AuthorityTypeAccountOwner, AuthorityKey{Key: make([]byte, 16)})
	assert.True(t, errors.Is(err, kitbinary.ErrInvalidKeySize))
}

func TestDecompileSetAuthority_ExplicitNone(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)

	instruction := solana.NewInstruction(
		DefaultPrograms.Token,
		[]byte{byte(CommandSetAuthority), byte(AuthorityTypeCloseAccount), 0},
		solana.NewAccountMeta(keys[0], false),
		solana.NewReadonlyAccountMeta(keys[1], true),
	)

	decompiled, err := DefaultPrograms.DecompileSetAuthority(solana.NewTransaction(keys[1], instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, AuthorityNone{}, decompiled.NewAuthority)
	assert.Equal(t, AuthorityTypeCloseAccount, decompiled.Type)

	instruction.Data = []byte{byte(CommandSetAuthority), byte(AuthorityTypeCloseAccount), 1}
	_, err = DefaultPrograms.DecompileSetAuthority(solana.NewTransaction(keys[1], instruction).Message, 0)
	assert.Error(t, err)

	instruction.Data = []byte{byte(CommandSetAuthority), 9}
	_, err = DefaultPrograms.DecompileSetAuthority(solana.NewTransaction(keys[1], instruction).Message, 0)
	assert.True(t, errors.Is(err, ErrInvalidAuthorityType))
}

func TestGetCommand(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 4)

	transfer, err := DefaultPrograms.Transfer(keys[0], keys[1], keys[2], 10)
	require.NoError(t, err)
	create := DefaultPrograms.CreateAssociatedTokenAccountAt(keys[2], keys[0], keys[3], keys[1])

	m := solana.NewTransaction(keys[2], create, transfer, DefaultPrograms.CloseAccount(keys[0], keys[1], keys[2])).Message

	_, err = DefaultPrograms.GetCommand(m, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	command, err := DefaultPrograms.GetCommand(m, 1)
	require.NoError(t, err)
	assert.Equal(t, CommandTransfer, command)

	command, err = DefaultPrograms.GetCommand(m, 2)
	require.NoError(t, err)
	assert.Equal(t, CommandCloseAccount, command)

	_, err = DefaultPrograms.GetCommand(m, 3)
	assert.Error(t, err)

	_, err = DefaultPrograms.DecompileTransfer(m, 2)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	_, err = DefaultPrograms.DecompileCloseAccount(m, 1)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	_, err = DefaultPrograms.DecompileMintTo(m, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	// The same message is foreign to a different token program.
	_, err = Token2022Programs.DecompileTransfer(m, 1)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestPrograms_Token2022(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	a, err := DefaultPrograms.Transfer(keys[0], keys[1], keys[2], 5)
	require.NoError(t, err)
	b, err := Token2022Programs.Transfer(keys[0], keys[1], keys[2], 5)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Accounts, b.Accounts)
	assert.EqualValues(t, Token2022Programs.Token, b.Program)
	assert.NotEqual(t, a.Program, b.Program)
}

// Transfer of 1000 units, built into a transaction and submitted as raw bytes.
func TestTransfer_EndToEnd(t *testing.T) {
	owner := testutil.GenerateSolanaKeypair(t)
	ownerKey := owner.Public().(ed25519.PublicKey)
	mint := testutil.GenerateSolanaKeys(t, 1)[0]
	dest := testutil.GenerateSolanaKeys(t, 1)[0]

	source, err := DefaultPrograms.GetAssociatedAccount(ownerKey, mint)
	require.NoError(t, err)

	amount, err := AmountFromInt64(1000)
	require.NoError(t, err)

	instruction, err := DefaultPrograms.Transfer(source, dest, ownerKey, amount)
	require.NoError(t, err)

	txn := solana.NewTransaction(ownerKey, instruction)
	require.NoError(t, txn.Sign(owner))

	var decoded solana.Transaction
	require.NoError(t, decoded.Unmarshal(txn.Marshal()))

	decompiled, err := DefaultPrograms.DecompileTransfer(decoded.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, source, decompiled.Source)
	assert.EqualValues(t, dest, decompiled.Destination)
	assert.EqualValues(t, ownerKey, decompiled.Owner)
	assert.EqualValues(t, 1000, decompiled.Amount)
	assert.True(t, ed25519.Verify(ownerKey, decoded.Message.Marshal(), decoded.Signatures[0][:]))
}
