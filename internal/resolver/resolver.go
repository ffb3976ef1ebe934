package resolver

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
)

const (
	defaultProgramCacheSizeConstant       = 128
	resolverClientMissingMessageConstant  = "account resolver requires an RPC client"
	tokenAccountDecodeMessageConstant     = "unable to decode token account"
	holdingAccountMissingTemplateConstant = "%w: no token account holds mint %s"
	holdingAccountLookupTemplateConstant  = "unable to locate holding account for mint %s: %w"
	holdingAccountFetchTemplateConstant   = "unable to fetch holding account %s: %w"
	tokenAccountDecodeTemplateConstant    = "%w %s: %v"
	ownerAccountFetchTemplateConstant     = "unable to fetch token owner %s: %w"
	programAccountFetchTemplateConstant   = "unable to fetch owning program %s: %w"
	programCacheCreationTemplateConstant  = "unable to create program cache: %w"
	logMessageAccountsResolvedConstant    = "Item accounts resolved"
	logMessageProgramCacheHitConstant     = "Owning program served from cache"
	logFieldMintConstant                  = "mint"
	logFieldHoldingAccountConstant        = "holding_account"
	logFieldOwnerConstant                 = "token_owner"
	logFieldOwningProgramConstant         = "owning_program"
	logFieldProgramDataConstant           = "program_data"
)

var (
	// ErrTokenAccountDecode indicates that a holding account does not use the token account layout.
	ErrTokenAccountDecode = errors.New(tokenAccountDecodeMessageConstant)

	errResolverClientMissing = errors.New(resolverClientMissingMessageConstant)
)

// Resolution captures the accounts that custody and administer one asset.
type Resolution struct {
	Mint           solana.PublicKey
	HoldingAccount solana.PublicKey
	Owner          solana.PublicKey
	OwningProgram  solana.PublicKey
	ProgramData    *solana.PublicKey
}

type programLookup struct {
	programData *solana.PublicKey
}

// Resolver walks from a mint to the program that controls its holder.
type Resolver struct {
	client       chain.Client
	programCache *lru.Cache[solana.PublicKey, programLookup]
	logger       *zap.Logger
}

// NewResolver constructs a Resolver. cacheSize bounds the number of owning programs remembered between items.
func NewResolver(client chain.Client, cacheSize int, logger *zap.Logger) (*Resolver, error) {
	if client == nil {
		return nil, errResolverClientMissing
	}
	if cacheSize <= 0 {
		cacheSize = defaultProgramCacheSizeConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	programCache, cacheError := lru.New[solana.PublicKey, programLookup](cacheSize)
	if cacheError != nil {
		return nil, fmt.Errorf(programCacheCreationTemplateConstant, cacheError)
	}

	return &Resolver{client: client, programCache: programCache, logger: logger}, nil
}

// Resolve locates the holding account of mint, its owner, the owner's program, and the program-data buffer when the program is upgradeable.
func (resolver *Resolver) Resolve(executionContext context.Context, mint solana.PublicKey) (Resolution, error) {
	holdingAccountAddress, holdingError := resolver.locateHoldingAccount(executionContext, mint)
	if holdingError != nil {
		return Resolution{}, holdingError
	}

	holdingAccount, fetchError := resolver.client.GetAccount(executionContext, holdingAccountAddress)
	if fetchError != nil {
		return Resolution{}, fmt.Errorf(holdingAccountFetchTemplateConstant, holdingAccountAddress, fetchError)
	}

	var tokenAccount token.Account
	if decodeError := bin.NewBinDecoder(holdingAccount.Data).Decode(&tokenAccount); decodeError != nil {
		return Resolution{}, fmt.Errorf(tokenAccountDecodeTemplateConstant, ErrTokenAccountDecode, holdingAccountAddress, decodeError)
	}

	ownerAccount, ownerError := resolver.client.GetAccount(executionContext, tokenAccount.Owner)
	if ownerError != nil {
		return Resolution{}, fmt.Errorf(ownerAccountFetchTemplateConstant, tokenAccount.Owner, ownerError)
	}

	programData, programError := resolver.resolveProgramData(executionContext, ownerAccount.Owner)
	if programError != nil {
		return Resolution{}, programError
	}

	resolution := Resolution{
		Mint:           mint,
		HoldingAccount: holdingAccountAddress,
		Owner:          tokenAccount.Owner,
		OwningProgram:  ownerAccount.Owner,
		ProgramData:    programData,
	}

	resolver.logResolution(resolution)

	return resolution, nil
}

func (resolver *Resolver) locateHoldingAccount(executionContext context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	tokenAccounts, lookupError := resolver.client.GetTokenLargestAccounts(executionContext, mint)
	if lookupError != nil {
		return solana.PublicKey{}, fmt.Errorf(holdingAccountLookupTemplateConstant, mint, lookupError)
	}
	if len(tokenAccounts) == 0 {
		return solana.PublicKey{}, fmt.Errorf(holdingAccountMissingTemplateConstant, chain.ErrAccountNotFound, mint)
	}
	return tokenAccounts[0], nil
}

func (resolver *Resolver) resolveProgramData(executionContext context.Context, programID solana.PublicKey) (*solana.PublicKey, error) {
	if cachedLookup, cached := resolver.programCache.Get(programID); cached {
		resolver.logger.Debug(logMessageProgramCacheHitConstant, zap.String(logFieldOwningProgramConstant, programID.String()))
		return copyPublicKey(cachedLookup.programData), nil
	}

	programAccount, fetchError := resolver.client.GetAccount(executionContext, programID)
	if fetchError != nil {
		return nil, fmt.Errorf(programAccountFetchTemplateConstant, programID, fetchError)
	}

	var programData *solana.PublicKey
	if loaderState, parsed := ParseUpgradeableLoaderState(programAccount.Data); parsed {
		if programDataAddress, deployed := loaderState.ProgramDataAddress(); deployed {
			programData = &programDataAddress
		}
	}

	resolver.programCache.Add(programID, programLookup{programData: copyPublicKey(programData)})
	return programData, nil
}

func (resolver *Resolver) logResolution(resolution Resolution) {
	programDataValue := ""
	if resolution.ProgramData != nil {
		programDataValue = resolution.ProgramData.String()
	}
	resolver.logger.Debug(
		logMessageAccountsResolvedConstant,
		zap.String(logFieldMintConstant, resolution.Mint.String()),
		zap.String(logFieldHoldingAccountConstant, resolution.HoldingAccount.String()),
		zap.String(logFieldOwnerConstant, resolution.Owner.String()),
		zap.String(logFieldOwningProgramConstant, resolution.OwningProgram.String()),
		zap.String(logFieldProgramDataConstant, programDataValue),
	)
}

func copyPublicKey(publicKey *solana.PublicKey) *solana.PublicKey {
	if publicKey == nil {
		return nil
	}
	duplicated := *publicKey
	return &duplicated
}
