package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	missingClientMessageConstant          = "RPC client not configured"
	missingSignersMessageConstant         = "at least one signer is required"
	missingInstructionsMessageConstant    = "at least one instruction is required"
	transactionBuildErrorTemplateConstant = "unable to build transaction: %w"
	transactionSignErrorTemplateConstant  = "unable to sign transaction: %w"
	messageEncodeErrorTemplateConstant    = "unable to encode transaction message: %w"
	unexpectedSignerTemplateConstant      = "no signer supplied for %s"
	logMessageSubmittingConstant          = "Submitting transaction"
	logFieldFeePayerConstant              = "fee_payer"
	logFieldInstructionCountConstant      = "instruction_count"
)

var (
	errMissingClient       = errors.New(missingClientMessageConstant)
	errMissingSigners      = errors.New(missingSignersMessageConstant)
	errMissingInstructions = errors.New(missingInstructionsMessageConstant)
)

// Submitter builds, signs, and submits transactions through a Client.
type Submitter struct {
	client Client
	logger *zap.Logger
}

// NewSubmitter constructs a Submitter bound to client.
func NewSubmitter(client Client, logger *zap.Logger) (*Submitter, error) {
	if client == nil {
		return nil, errMissingClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{client: client, logger: logger}, nil
}

// Submit signs instructions with signers and sends them as one transaction. The first signer pays the fees.
func (submitter *Submitter) Submit(executionContext context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if len(instructions) == 0 {
		return solana.Signature{}, errMissingInstructions
	}
	if len(signers) == 0 {
		return solana.Signature{}, errMissingSigners
	}

	feePayer := signers[0].PublicKey()

	recentBlockhash, blockhashError := submitter.client.GetLatestBlockhash(executionContext)
	if blockhashError != nil {
		return solana.Signature{}, blockhashError
	}

	transaction, buildError := solana.NewTransaction(instructions, recentBlockhash, solana.TransactionPayer(feePayer))
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(transactionBuildErrorTemplateConstant, buildError)
	}

	signerLookup := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, signer := range signers {
		signerLookup[signer.PublicKey()] = signer
	}

	_, signError := transaction.Sign(func(publicKey solana.PublicKey) *solana.PrivateKey {
		signer, signerKnown := signerLookup[publicKey]
		if !signerKnown {
			return nil
		}
		return &signer
	})
	if signError != nil {
		return solana.Signature{}, fmt.Errorf(transactionSignErrorTemplateConstant, signError)
	}

	submitter.logger.Debug(
		logMessageSubmittingConstant,
		zap.String(logFieldFeePayerConstant, feePayer.String()),
		zap.Int(logFieldInstructionCountConstant, len(instructions)),
	)

	return submitter.client.SendAndConfirm(executionContext, transaction)
}

// EncodeUnsignedMessage serializes instructions into a base64 transaction message paid by feePayer.
// The message carries an empty blockhash; signers replace it before signing offline.
func EncodeUnsignedMessage(instructions []solana.Instruction, feePayer solana.PublicKey) (string, error) {
	if len(instructions) == 0 {
		return "", errMissingInstructions
	}

	transaction, buildError := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(feePayer))
	if buildError != nil {
		return "", fmt.Errorf(transactionBuildErrorTemplateConstant, buildError)
	}

	messageContent, encodeError := transaction.Message.MarshalBinary()
	if encodeError != nil {
		return "", fmt.Errorf(messageEncodeErrorTemplateConstant, encodeError)
	}

	return base64.StdEncoding.EncodeToString(messageContent), nil
}
