package token

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-kit/pkg/metrics"
	"github.com/code-payments/token-kit/pkg/solana"
)

const (
	associatedAccountCreatedMetricName = "Token/associated_account_created_count"
	associatedAccountCreatedEventName  = "AssociatedAccountCreated"
)

// AssociatedAccount is the resolved associated token account of an owner.
type AssociatedAccount struct {
	Address ed25519.PublicKey

	// Created is set when the account did not exist and a creation
	// transaction was submitted. Signature identifies that transaction.
	Created   bool
	Signature solana.Signature
}

// GetOrCreateAssociatedAccount returns the associated account of owner for
// mint, submitting a creation transaction paid for by payer when the account
// does not exist.
//
// Lookup and submission errors are wrapped with context; errors.Cause returns
// the ledger error. Concurrent callers for the same owner and mint may both
// submit a creation transaction, in which case all but one fail on the
// ledger. Retrying is left to the caller.
func GetOrCreateAssociatedAccount(
	ctx context.Context,
	ledger Ledger,
	programs Programs,
	payer ed25519.PrivateKey,
	mint, owner ed25519.PublicKey,
) (*AssociatedAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, "token", "GetOrCreateAssociatedAccount")
	defer tracer.End()

	account, err := getOrCreateAssociatedAccount(ctx, ledger, programs, payer, mint, owner)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	tracer.AddAttribute("created", account.Created)
	return account, nil
}

func getOrCreateAssociatedAccount(
	ctx context.Context,
	ledger Ledger,
	programs Programs,
	payer ed25519.PrivateKey,
	mint, owner ed25519.PublicKey,
) (*AssociatedAccount, error) {
	if len(payer) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid payer key size: %d", len(payer))
	}

	address, err := programs.GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive associated account")
	}

	result, err := ledger.LookupAccount(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lookup associated account")
	}

	switch result.Status {
	case LookupStatusFound:
		return &AssociatedAccount{Address: address}, nil
	case LookupStatusNotFound:
	default:
		return nil, errors.Errorf("unexpected lookup status: %d", result.Status)
	}

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":    "token/resolver",
		"address": base58.Encode(address),
		"mint":    base58.Encode(mint),
		"owner":   base58.Encode(owner),
	})

	payerKey := payer.Public().(ed25519.PublicKey)
	txn := solana.NewTransaction(
		payerKey,
		programs.CreateAssociatedTokenAccountAt(payerKey, address, owner, mint),
	)

	sig, err := ledger.SubmitTransaction(ctx, txn, payer)
	if err != nil {
		log.WithError(err).Warn("failed to create associated account")
		return nil, errors.Wrap(err, "failed to submit associated account creation")
	}

	log.WithField("signature", base58.Encode(sig[:])).Info("created associated account")
	metrics.RecordCount(ctx, associatedAccountCreatedMetricName, 1)
	metrics.RecordEvent(ctx, associatedAccountCreatedEventName, map[string]interface{}{
		"address":   base58.Encode(address),
		"mint":      base58.Encode(mint),
		"signature": base58.Encode(sig[:]),
	})

	return &AssociatedAccount{
		Address:   address,
		Created:   true,
		Signature: sig,
	}, nil
}
