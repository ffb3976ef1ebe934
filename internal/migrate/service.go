package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/temirov/goose/internal/instructions"
	"github.com/temirov/goose/internal/resolver"
	"github.com/temirov/goose/internal/state"
	"github.com/temirov/goose/internal/utils"
)

const (
	defaultWorkerCountConstant         = 1
	itemFailedMessageConstant          = "item migration failed"
	itemFailureTemplateConstant        = "%w %s: %w"
	resolveErrorTemplateConstant       = "unable to resolve accounts: %w"
	buildErrorTemplateConstant         = "unable to build migrate instruction: %w"
	throttleErrorTemplateConstant      = "submission throttle interrupted: %w"
	stateReadErrorTemplateConstant     = "unable to read migration state of %s: %w"
	writeMigratedErrorTemplateConstant = "unable to write migrated manifest: %w"
	writeFailedErrorTemplateConstant   = "unable to write failure manifest: %w"
	clearFailedErrorTemplateConstant   = "unable to remove stale failure manifest: %w"
	unconfirmedErrorTemplateConstant   = "unconfirmed: %s: %w"
	missingPayerMessageConstant        = "payer keypair not configured"
	missingResolverMessageConstant     = "item resolver not configured"
	missingStateFetcherMessageConstant = "state fetcher not configured"
	missingSubmitterMessageConstant    = "transaction submitter not configured"
	logMessageRunStartedConstant       = "Migration run started"
	logMessageRunFinishedConstant      = "Migration run finished"
	logMessageItemMigratedConstant     = "Item migrated"
	logMessageItemFailedConstant       = "Item migration failed"
	logMessageRunInterruptedConstant   = "Migration run interrupted"
	logFieldRunIDConstant              = "run_id"
	logFieldCollectionConstant         = "collection"
	logFieldItemCountConstant          = "item_count"
	logFieldItemMintConstant           = "item_mint"
	logFieldSignatureConstant          = "signature"
	logFieldWorkersConstant            = "workers"
	logFieldMigratedCountConstant      = "migrated_count"
	logFieldFailedCountConstant        = "failed_count"
	logFieldSkippedCountConstant       = "skipped_count"
	logFieldRuleSetConstant            = "rule_set"
	noRuleSetConstant                  = "none"
)

// ErrItemFailed marks the per-item errors joined into a run's aggregate error.
var ErrItemFailed = errors.New(itemFailedMessageConstant)

var (
	errMissingPayer        = errors.New(missingPayerMessageConstant)
	errMissingResolver     = errors.New(missingResolverMessageConstant)
	errMissingStateFetcher = errors.New(missingStateFetcherMessageConstant)
	errMissingSubmitter    = errors.New(missingSubmitterMessageConstant)
)

// ItemResolver locates the accounts involved in migrating an item.
type ItemResolver interface {
	Resolve(executionContext context.Context, mint solana.PublicKey) (resolver.Resolution, error)
}

// StateFetcher reads the migration state of a collection.
type StateFetcher interface {
	Fetch(executionContext context.Context, collectionMint solana.PublicKey) (state.MigrationState, error)
}

// TransactionSubmitter signs and submits instructions.
type TransactionSubmitter interface {
	Submit(executionContext context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error)
}

// ProgressObserver receives one notification per processed item. Calls may arrive from several goroutines.
type ProgressObserver interface {
	ItemMigrated(itemMint solana.PublicKey, signature solana.Signature)
	ItemFailed(itemMint string, failure error)
}

// ServiceDependencies describes the collaborators of a migration run.
type ServiceDependencies struct {
	Logger       *zap.Logger
	Payer        solana.PrivateKey
	Builder      instructions.Builder
	Resolver     ItemResolver
	StateFetcher StateFetcher
	Submitter    TransactionSubmitter
	Progress     ProgressObserver
	Metrics      *Metrics
	Clock        func() time.Time
}

// Options tunes how items are processed.
type Options struct {
	Workers              int
	SubmissionsPerSecond float64
}

// Request identifies the collection and item manifest of a run.
type Request struct {
	Collection      solana.PublicKey
	ManifestPath    string
	OutputDirectory string

	// Items, when non-nil, is used instead of reading ManifestPath.
	Items []solana.PublicKey
}

// Report summarizes a finished run. Outcomes and Failures follow manifest order.
// Manifest paths are set only once the corresponding file has been written.
type Report struct {
	RunID               string
	ItemCount           int
	Outcomes            []Outcome
	Failures            []Failure
	ResultManifestPath  string
	FailureManifestPath string
}

// Service migrates the items of a collection.
type Service struct {
	logger       *zap.Logger
	payer        solana.PrivateKey
	builder      instructions.Builder
	resolver     ItemResolver
	stateFetcher StateFetcher
	submitter    TransactionSubmitter
	progress     ProgressObserver
	metrics      *Metrics
	clock        func() time.Time
	workers      int
	limiter      *rate.Limiter
}

type itemResult struct {
	attempted bool
	signature solana.Signature
	failure   error
}

// NewService constructs a Service.
func NewService(dependencies ServiceDependencies, options Options) (*Service, error) {
	if len(dependencies.Payer) == 0 {
		return nil, errMissingPayer
	}
	if dependencies.Resolver == nil {
		return nil, errMissingResolver
	}
	if dependencies.StateFetcher == nil {
		return nil, errMissingStateFetcher
	}
	if dependencies.Submitter == nil {
		return nil, errMissingSubmitter
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	workers := options.Workers
	if workers < 1 {
		workers = defaultWorkerCountConstant
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if options.SubmissionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.SubmissionsPerSecond), 1)
	}

	return &Service{
		logger:       logger,
		payer:        dependencies.Payer,
		builder:      dependencies.Builder,
		resolver:     dependencies.Resolver,
		stateFetcher: dependencies.StateFetcher,
		submitter:    dependencies.Submitter,
		progress:     dependencies.Progress,
		metrics:      dependencies.Metrics,
		clock:        clock,
		workers:      workers,
		limiter:      limiter,
	}, nil
}

// Run migrates every item of the manifest and writes the result manifests.
// The run ID recorded in the context by utils.CommandContextAccessor is reused when present.
// Item failures do not stop the run; they are collected into the failure manifest and
// joined into the returned error. A failure manifest left by an earlier run is removed
// when this run has no failures. Cancellation stops scheduling new items, and the
// outcomes gathered so far are still written. An item whose transaction was sent but
// not confirmed before cancellation is recorded as a failure carrying its signature.
func (service *Service) Run(executionContext context.Context, request Request) (Report, error) {
	items := request.Items
	if items == nil {
		parsedItems, parseError := ReadItemManifest(request.ManifestPath)
		if parseError != nil {
			return Report{}, parseError
		}
		items = parsedItems
	}

	runID, inherited := utils.NewCommandContextAccessor().RunID(executionContext)
	if !inherited {
		runID = uuid.NewString()
	}
	runLogger := service.logger.With(
		zap.String(logFieldRunIDConstant, runID),
		zap.String(logFieldCollectionConstant, request.Collection.String()),
	)

	migrationState, stateError := service.stateFetcher.Fetch(executionContext, request.Collection)
	if stateError != nil {
		return Report{}, fmt.Errorf(stateReadErrorTemplateConstant, request.Collection, stateError)
	}
	ruleSet := migrationState.RuleSet()

	runLogger.Info(
		logMessageRunStartedConstant,
		zap.Int(logFieldItemCountConstant, len(items)),
		zap.Int(logFieldWorkersConstant, service.workers),
		zap.String(logFieldRuleSetConstant, describeRuleSet(ruleSet)),
	)

	results := make([]itemResult, len(items))
	var workerGroup errgroup.Group
	workerGroup.SetLimit(service.workers)
	for itemIndex, item := range items {
		if executionContext.Err() != nil {
			break
		}
		workerGroup.Go(func() error {
			results[itemIndex] = service.migrateItem(executionContext, runLogger, request.Collection, item, ruleSet)
			return nil
		})
	}
	_ = workerGroup.Wait()

	report := Report{RunID: runID, ItemCount: len(items)}
	var itemErrors []error
	skippedCount := 0
	for itemIndex, result := range results {
		switch {
		case !result.attempted:
			skippedCount++
		case result.failure != nil:
			report.Failures = append(report.Failures, Failure{ItemMint: items[itemIndex].String(), Error: result.failure.Error()})
			itemErrors = append(itemErrors, fmt.Errorf(itemFailureTemplateConstant, ErrItemFailed, items[itemIndex], result.failure))
		default:
			report.Outcomes = append(report.Outcomes, Outcome{Signature: result.signature.String(), ItemMint: items[itemIndex].String()})
		}
	}

	resultManifestPath := MigratedManifestPath(request.OutputDirectory, request.Collection)
	if writeError := writeOutcomes(resultManifestPath, report.Outcomes); writeError != nil {
		return report, fmt.Errorf(writeMigratedErrorTemplateConstant, writeError)
	}
	report.ResultManifestPath = resultManifestPath
	failureManifestPath := FailedManifestPath(request.OutputDirectory, request.Collection)
	if len(report.Failures) > 0 {
		if writeError := writeFailures(failureManifestPath, report.Failures); writeError != nil {
			return report, fmt.Errorf(writeFailedErrorTemplateConstant, writeError)
		}
		report.FailureManifestPath = failureManifestPath
	} else if removeError := os.Remove(failureManifestPath); removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		return report, fmt.Errorf(clearFailedErrorTemplateConstant, removeError)
	}

	service.metrics.observeRunFinished(service.clock())
	runLogger.Info(
		logMessageRunFinishedConstant,
		zap.Int(logFieldMigratedCountConstant, len(report.Outcomes)),
		zap.Int(logFieldFailedCountConstant, len(report.Failures)),
		zap.Int(logFieldSkippedCountConstant, skippedCount),
	)

	if contextError := executionContext.Err(); contextError != nil && skippedCount > 0 {
		runLogger.Warn(logMessageRunInterruptedConstant, zap.Int(logFieldSkippedCountConstant, skippedCount))
		itemErrors = append(itemErrors, contextError)
	}
	return report, errors.Join(itemErrors...)
}

func (service *Service) migrateItem(executionContext context.Context, logger *zap.Logger, collection solana.PublicKey, item solana.PublicKey, ruleSet *solana.PublicKey) itemResult {
	if executionContext.Err() != nil {
		return itemResult{}
	}

	startedAt := service.clock()
	signature, migrationError := service.submitItem(executionContext, collection, item, ruleSet)
	if migrationError != nil && executionContext.Err() != nil && isCancellation(migrationError) {
		if signature.IsZero() {
			return itemResult{}
		}
		// The transaction left the client before confirmation was interrupted and may still land.
		migrationError = fmt.Errorf(unconfirmedErrorTemplateConstant, signature, migrationError)
	}
	service.metrics.observeItem(migrationError == nil, service.clock().Sub(startedAt))

	if migrationError != nil {
		logger.Warn(logMessageItemFailedConstant, zap.String(logFieldItemMintConstant, item.String()), zap.Error(migrationError))
		if service.progress != nil {
			service.progress.ItemFailed(item.String(), migrationError)
		}
		return itemResult{attempted: true, failure: migrationError}
	}

	logger.Info(
		logMessageItemMigratedConstant,
		zap.String(logFieldItemMintConstant, item.String()),
		zap.String(logFieldSignatureConstant, signature.String()),
	)
	if service.progress != nil {
		service.progress.ItemMigrated(item, signature)
	}
	return itemResult{attempted: true, signature: signature}
}

func (service *Service) submitItem(executionContext context.Context, collection solana.PublicKey, item solana.PublicKey, ruleSet *solana.PublicKey) (solana.Signature, error) {
	resolution, resolveError := service.resolver.Resolve(executionContext, item)
	if resolveError != nil {
		return solana.Signature{}, fmt.Errorf(resolveErrorTemplateConstant, resolveError)
	}

	instruction, buildError := service.builder.Migrate(instructions.MigrateAccounts{
		Payer:                   service.payer.PublicKey(),
		ItemMint:                item,
		ItemToken:               resolution.HoldingAccount,
		TokenOwner:              resolution.Owner,
		TokenOwnerProgram:       resolution.OwningProgram,
		TokenOwnerProgramBuffer: resolution.ProgramData,
		CollectionMint:          collection,
		RuleSet:                 ruleSet,
	})
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, buildError)
	}

	if waitError := service.limiter.Wait(executionContext); waitError != nil {
		return solana.Signature{}, fmt.Errorf(throttleErrorTemplateConstant, waitError)
	}

	return service.submitter.Submit(executionContext, []solana.Instruction{instruction}, service.payer)
}

func isCancellation(failure error) bool {
	return errors.Is(failure, context.Canceled) || errors.Is(failure, context.DeadlineExceeded)
}

func describeRuleSet(ruleSet *solana.PublicKey) string {
	if ruleSet == nil {
		return noRuleSetConstant
	}
	return ruleSet.String()
}
