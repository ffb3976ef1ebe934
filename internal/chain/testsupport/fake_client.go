package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/temirov/goose/internal/chain"
)

// FakeClient is an in-memory chain.Client used by tests.
type FakeClient struct {
	Accounts             map[solana.PublicKey]chain.Account
	AccountErrors        map[solana.PublicKey]error
	ProgramAccounts      map[solana.PublicKey][]chain.Account
	ProgramAccountsError error
	LargestAccounts      map[solana.PublicKey][]solana.PublicKey
	Blockhash            solana.Hash
	BlockhashError       error
	GenesisHash          solana.Hash
	GenesisError         error
	SendResults          []SendResult
	SendError            error

	mutex               sync.Mutex
	AccountRequests     []solana.PublicKey
	SentTransactions    []*solana.Transaction
	GenesisRequestCount int
}

// SendResult configures the outcome of one SendAndConfirm call.
type SendResult struct {
	Signature solana.Signature
	Error     error
}

// AddAccount registers account under its address.
func (client *FakeClient) AddAccount(account chain.Account) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if client.Accounts == nil {
		client.Accounts = map[solana.PublicKey]chain.Account{}
	}
	client.Accounts[account.Address] = account
}

// GetAccount returns the registered account or chain.ErrAccountNotFound.
func (client *FakeClient) GetAccount(_ context.Context, address solana.PublicKey) (chain.Account, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.AccountRequests = append(client.AccountRequests, address)
	if accountError, exists := client.AccountErrors[address]; exists {
		return chain.Account{}, accountError
	}
	account, exists := client.Accounts[address]
	if !exists {
		return chain.Account{}, fmt.Errorf("%w: %s", chain.ErrAccountNotFound, address)
	}
	return account, nil
}

// GetProgramAccounts returns the accounts registered for programID.
func (client *FakeClient) GetProgramAccounts(_ context.Context, programID solana.PublicKey) ([]chain.Account, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if client.ProgramAccountsError != nil {
		return nil, client.ProgramAccountsError
	}
	return append([]chain.Account{}, client.ProgramAccounts[programID]...), nil
}

// GetTokenLargestAccounts returns the token accounts registered for mint.
func (client *FakeClient) GetTokenLargestAccounts(_ context.Context, mint solana.PublicKey) ([]solana.PublicKey, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return append([]solana.PublicKey{}, client.LargestAccounts[mint]...), nil
}

// GetLatestBlockhash returns the configured blockhash.
func (client *FakeClient) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	if client.BlockhashError != nil {
		return solana.Hash{}, client.BlockhashError
	}
	return client.Blockhash, nil
}

// SendAndConfirm records the transaction and returns the next configured result.
func (client *FakeClient) SendAndConfirm(_ context.Context, transaction *solana.Transaction) (solana.Signature, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.SentTransactions = append(client.SentTransactions, transaction)
	if client.SendError != nil {
		return solana.Signature{}, client.SendError
	}
	sendIndex := len(client.SentTransactions) - 1
	if sendIndex < len(client.SendResults) {
		result := client.SendResults[sendIndex]
		return result.Signature, result.Error
	}
	if len(transaction.Signatures) > 0 {
		return transaction.Signatures[0], nil
	}
	return solana.Signature{}, nil
}

// GetGenesisHash returns the configured genesis hash.
func (client *FakeClient) GetGenesisHash(context.Context) (solana.Hash, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.GenesisRequestCount++
	if client.GenesisError != nil {
		return solana.Hash{}, client.GenesisError
	}
	return client.GenesisHash, nil
}
