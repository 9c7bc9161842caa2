package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// ProgramKey is the address of the system program.
//
// https://explorer.solana.com/address/11111111111111111111111111111111
var ProgramKey ed25519.PublicKey

// RentSysVar points to the system variable "Rent"
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar ed25519.PublicKey

func init() {
	var err error

	ProgramKey, err = base58.Decode("11111111111111111111111111111111")
	if err != nil {
		panic(err)
	}

	RentSysVar, err = base58.Decode("SysvarRent111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}
