package migrate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/goose/internal/instructions"
	migrate "github.com/temirov/goose/internal/migrate"
	"github.com/temirov/goose/internal/migrate/testsupport"
	"github.com/temirov/goose/internal/pda"
	"github.com/temirov/goose/internal/state"
	"github.com/temirov/goose/internal/utils"
)

const (
	testCollectionConstant      = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	testFirstItemConstant       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testSecondItemConstant      = "So11111111111111111111111111111111111111112"
	testThirdItemConstant       = "auth9SigNpDKz4sJJ1DfCTuZrZNSAgh9sFD3rboVmgg"
	testRuleSetConstant         = "eBJLFYPxJmMGKuFwpDWkzxZeUrad92kZRC5BJLpzyT9"
	testResolveFailureMessage   = "holding account missing"
	testSubmitFailureMessage    = "transaction simulation failed"
	testStateFailureMessage     = "migration state not found"
	testSubtestTemplate         = "%d_%s"
	testManifestFileName        = "mints.json"
	testItemsMetricName         = "goose_migrate_items_total"
	testItemDurationMetricName  = "goose_migrate_item_duration_seconds"
	testRunStartedMessage       = "Migration run started"
	testRunIDFieldName          = "run_id"
	testFixedClockUnixConstant  = 1700000000
	testPropertyItemCount       = 10
	testPropertyFailureInterval = 3
	testUnconfirmedMarker       = "unconfirmed"
	testInheritedRunID          = "0b6e3f52-5d8a-4c1e-9f3a-2d7c1b8e4a60"
)

type serviceHarness struct {
	payer        solana.PrivateKey
	resolver     *testsupport.ResolverStub
	stateFetcher *testsupport.StateFetcherStub
	submitter    *testsupport.SubmitterStub
	progress     *testsupport.ProgressRecorder
	metrics      *migrate.Metrics
}

func newServiceHarness(testInstance *testing.T) *serviceHarness {
	payer, keyError := solana.NewRandomPrivateKey()
	require.NoError(testInstance, keyError)
	ruleSet := solana.MustPublicKeyFromBase58(testRuleSetConstant)
	return &serviceHarness{
		payer:    payer,
		resolver: &testsupport.ResolverStub{},
		stateFetcher: &testsupport.StateFetcherStub{State: state.MigrationState{
			CollectionInfo: state.CollectionInfo{Mint: solana.MustPublicKeyFromBase58(testCollectionConstant), RuleSet: &ruleSet},
		}},
		submitter: &testsupport.SubmitterStub{},
		progress:  &testsupport.ProgressRecorder{},
		metrics:   migrate.NewMetrics(),
	}
}

func (harness *serviceHarness) newService(testInstance *testing.T, logger *zap.Logger, options migrate.Options) *migrate.Service {
	service, serviceError := migrate.NewService(migrate.ServiceDependencies{
		Logger:       logger,
		Payer:        harness.payer,
		Builder:      instructions.NewBuilder(pda.NewDeriver(solana.PublicKey{})),
		Resolver:     harness.resolver,
		StateFetcher: harness.stateFetcher,
		Submitter:    harness.submitter,
		Progress:     harness.progress,
		Metrics:      harness.metrics,
		Clock:        func() time.Time { return time.Unix(testFixedClockUnixConstant, 0) },
	}, options)
	require.NoError(testInstance, serviceError)
	return service
}

func writeManifest(testInstance *testing.T, directory string, entries ...string) string {
	manifestContent, encodeError := json.Marshal(entries)
	require.NoError(testInstance, encodeError)
	manifestPath := filepath.Join(directory, testManifestFileName)
	require.NoError(testInstance, os.WriteFile(manifestPath, manifestContent, 0o600))
	return manifestPath
}

func readManifestEntries(testInstance *testing.T, manifestPath string) []map[string]string {
	manifestContent, readError := os.ReadFile(manifestPath)
	require.NoError(testInstance, readError)
	var entries []map[string]string
	require.NoError(testInstance, json.Unmarshal(manifestContent, &entries))
	return entries
}

func TestRunMigratesItemsInManifestOrder(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	workingDirectory := testInstance.TempDir()
	collection := solana.MustPublicKeyFromBase58(testCollectionConstant)
	firstItem := solana.MustPublicKeyFromBase58(testFirstItemConstant)
	secondItem := solana.MustPublicKeyFromBase58(testSecondItemConstant)

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      collection,
		ManifestPath:    writeManifest(testInstance, workingDirectory, testFirstItemConstant, testSecondItemConstant),
		OutputDirectory: workingDirectory,
	})
	require.NoError(testInstance, runError)

	expectedManifestPath := filepath.Join(workingDirectory, testCollectionConstant+"_migrated_mints.json")
	require.Equal(testInstance, expectedManifestPath, report.ResultManifestPath)
	require.Empty(testInstance, report.FailureManifestPath)
	require.Equal(testInstance, 2, report.ItemCount)
	require.NotEmpty(testInstance, report.RunID)

	require.Equal(testInstance, []map[string]string{
		{"sig": testsupport.SignatureForMint(firstItem).String(), "item_mint": testFirstItemConstant},
		{"sig": testsupport.SignatureForMint(secondItem).String(), "item_mint": testSecondItemConstant},
	}, readManifestEntries(testInstance, expectedManifestPath))

	require.Equal(testInstance, 1, harness.stateFetcher.FetchCount)
	require.Equal(testInstance, []solana.PublicKey{firstItem, secondItem}, harness.submitter.SubmittedMints)
	ruleSet := solana.MustPublicKeyFromBase58(testRuleSetConstant)
	require.Equal(testInstance, []solana.PublicKey{ruleSet, ruleSet}, harness.submitter.RuleSets)
	require.Equal(testInstance, []solana.PublicKey{firstItem, secondItem}, harness.progress.Migrated)

	_, statError := os.Stat(filepath.Join(workingDirectory, testCollectionConstant+"_failed_mints.json"))
	require.True(testInstance, os.IsNotExist(statError))
}

func TestRunWithoutRuleSetUsesProgramPlaceholder(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	harness.stateFetcher.State.CollectionInfo.RuleSet = nil

	_, runError := harness.newService(testInstance, nil, migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items:           []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant)},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []solana.PublicKey{pda.DefaultMigrationProgramID}, harness.submitter.RuleSets)
}

func TestRunIsolatesItemFailures(testInstance *testing.T) {
	resolveFailure := errors.New(testResolveFailureMessage)
	submitFailure := errors.New(testSubmitFailureMessage)
	secondItem := solana.MustPublicKeyFromBase58(testSecondItemConstant)
	thirdItem := solana.MustPublicKeyFromBase58(testThirdItemConstant)

	harness := newServiceHarness(testInstance)
	harness.resolver.Errors = map[solana.PublicKey]error{secondItem: resolveFailure}
	harness.submitter.Errors = map[solana.PublicKey]error{thirdItem: submitFailure}
	workingDirectory := testInstance.TempDir()

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		ManifestPath:    writeManifest(testInstance, workingDirectory, testFirstItemConstant, testSecondItemConstant, testThirdItemConstant),
		OutputDirectory: workingDirectory,
	})
	require.ErrorIs(testInstance, runError, migrate.ErrItemFailed)
	require.ErrorIs(testInstance, runError, resolveFailure)
	require.ErrorIs(testInstance, runError, submitFailure)

	require.Len(testInstance, report.Outcomes, 1)
	require.Equal(testInstance, testFirstItemConstant, report.Outcomes[0].ItemMint)
	require.Len(testInstance, report.Failures, 2)
	require.Equal(testInstance, testSecondItemConstant, report.Failures[0].ItemMint)
	require.Contains(testInstance, report.Failures[0].Error, testResolveFailureMessage)
	require.Equal(testInstance, testThirdItemConstant, report.Failures[1].ItemMint)
	require.Contains(testInstance, report.Failures[1].Error, testSubmitFailureMessage)

	failureEntries := readManifestEntries(testInstance, report.FailureManifestPath)
	require.Len(testInstance, failureEntries, 2)
	require.Equal(testInstance, testSecondItemConstant, failureEntries[0]["item_mint"])
	require.Contains(testInstance, failureEntries[0]["error"], testResolveFailureMessage)
	require.Len(testInstance, readManifestEntries(testInstance, report.ResultManifestPath), 1)
	require.Equal(testInstance, []string{testSecondItemConstant, testThirdItemConstant}, harness.progress.Failed)
}

func TestRunManifestItemCountMatchesSuccessfulSubmissions(testInstance *testing.T) {
	testCases := []struct {
		name    string
		workers int
	}{
		{name: "sequential", workers: 1},
		{name: "concurrent", workers: 4},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			harness := newServiceHarness(subtest)
			harness.submitter.Errors = map[solana.PublicKey]error{}

			items := make([]solana.PublicKey, 0, testPropertyItemCount)
			for itemIndex := 0; itemIndex < testPropertyItemCount; itemIndex++ {
				itemKey, keyError := solana.NewRandomPrivateKey()
				require.NoError(subtest, keyError)
				items = append(items, itemKey.PublicKey())
				if itemIndex%testPropertyFailureInterval == 0 {
					harness.submitter.Errors[itemKey.PublicKey()] = errors.New(testSubmitFailureMessage)
				}
			}

			report, runError := harness.newService(subtest, zap.NewNop(), migrate.Options{Workers: testCase.workers, SubmissionsPerSecond: 1000}).Run(context.Background(), migrate.Request{
				Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
				OutputDirectory: subtest.TempDir(),
				Items:           items,
			})
			require.ErrorIs(subtest, runError, migrate.ErrItemFailed)

			manifestEntries := readManifestEntries(subtest, report.ResultManifestPath)
			require.Len(subtest, manifestEntries, len(harness.submitter.SubmittedMints)-len(harness.submitter.Errors))
			require.Equal(subtest, testPropertyItemCount, len(report.Outcomes)+len(report.Failures))

			expectedOrder := make([]string, 0, len(items))
			for _, item := range items {
				if _, failing := harness.submitter.Errors[item]; !failing {
					expectedOrder = append(expectedOrder, item.String())
				}
			}
			actualOrder := make([]string, 0, len(manifestEntries))
			for _, entry := range manifestEntries {
				actualOrder = append(actualOrder, entry["item_mint"])
			}
			require.Equal(subtest, expectedOrder, actualOrder)
		})
	}
}

func TestRunRejectsMalformedManifestBeforeNetworkAccess(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	workingDirectory := testInstance.TempDir()

	_, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		ManifestPath:    writeManifest(testInstance, workingDirectory, testFirstItemConstant, "Mint1"),
		OutputDirectory: workingDirectory,
	})
	require.ErrorIs(testInstance, runError, migrate.ErrManifestParse)
	require.Zero(testInstance, harness.stateFetcher.FetchCount)
	require.Empty(testInstance, harness.resolver.ResolvedMints)
	require.Empty(testInstance, harness.submitter.SubmittedMints)
}

func TestRunAbortsWhenStateIsUnavailable(testInstance *testing.T) {
	stateFailure := errors.New(testStateFailureMessage)
	harness := newServiceHarness(testInstance)
	harness.stateFetcher.Error = stateFailure
	workingDirectory := testInstance.TempDir()

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: workingDirectory,
		Items:           []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant)},
	})
	require.ErrorIs(testInstance, runError, stateFailure)
	require.Empty(testInstance, report.ResultManifestPath)
	require.Empty(testInstance, harness.submitter.SubmittedMints)

	directoryEntries, listError := os.ReadDir(workingDirectory)
	require.NoError(testInstance, listError)
	require.Empty(testInstance, directoryEntries)
}

func TestRunFlushesOutcomesOnCancellation(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	runContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	harness.submitter.OnSubmit = func(solana.PublicKey) { cancel() }

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{Workers: 1}).Run(runContext, migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items: []solana.PublicKey{
			solana.MustPublicKeyFromBase58(testFirstItemConstant),
			solana.MustPublicKeyFromBase58(testSecondItemConstant),
			solana.MustPublicKeyFromBase58(testThirdItemConstant),
		},
	})
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.NotErrorIs(testInstance, runError, migrate.ErrItemFailed)
	require.Len(testInstance, report.Outcomes, 1)
	require.Empty(testInstance, report.Failures)
	require.Equal(testInstance, []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant)}, harness.submitter.SubmittedMints)
	require.Len(testInstance, readManifestEntries(testInstance, report.ResultManifestPath), 1)
}

func TestRunRecordsUnconfirmedSubmissionOnCancellation(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	firstItem := solana.MustPublicKeyFromBase58(testFirstItemConstant)
	runContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	harness.submitter.Errors = map[solana.PublicKey]error{firstItem: context.Canceled}
	harness.submitter.Unconfirmed = map[solana.PublicKey]bool{firstItem: true}
	harness.submitter.OnSubmit = func(solana.PublicKey) { cancel() }

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{Workers: 1}).Run(runContext, migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items: []solana.PublicKey{
			firstItem,
			solana.MustPublicKeyFromBase58(testSecondItemConstant),
		},
	})
	require.ErrorIs(testInstance, runError, migrate.ErrItemFailed)
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, report.Outcomes)
	require.Len(testInstance, report.Failures, 1)
	require.Equal(testInstance, testFirstItemConstant, report.Failures[0].ItemMint)
	require.Contains(testInstance, report.Failures[0].Error, testUnconfirmedMarker)
	require.Contains(testInstance, report.Failures[0].Error, testsupport.SignatureForMint(firstItem).String())
	require.Equal(testInstance, []string{testFirstItemConstant}, harness.progress.Failed)

	failureEntries := readManifestEntries(testInstance, report.FailureManifestPath)
	require.Len(testInstance, failureEntries, 1)
	require.Equal(testInstance, testFirstItemConstant, failureEntries[0]["item_mint"])
}

func TestRunOmitsUnsentCancelledItemsFromMetrics(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	firstItem := solana.MustPublicKeyFromBase58(testFirstItemConstant)
	runContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	harness.submitter.Errors = map[solana.PublicKey]error{firstItem: context.Canceled}
	harness.submitter.OnSubmit = func(solana.PublicKey) { cancel() }

	report, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{Workers: 1}).Run(runContext, migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items:           []solana.PublicKey{firstItem},
	})
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.NotErrorIs(testInstance, runError, migrate.ErrItemFailed)
	require.Empty(testInstance, report.Outcomes)
	require.Empty(testInstance, report.Failures)

	itemSampleCount, countError := testutil.GatherAndCount(harness.metrics.Registry(), testItemsMetricName, testItemDurationMetricName)
	require.NoError(testInstance, countError)
	require.Zero(testInstance, itemSampleCount)
}

func TestRunClearsStaleFailureManifest(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	outputDirectory := testInstance.TempDir()
	collection := solana.MustPublicKeyFromBase58(testCollectionConstant)
	failingItem := solana.MustPublicKeyFromBase58(testSecondItemConstant)
	harness.submitter.Errors = map[solana.PublicKey]error{failingItem: errors.New(testSubmitFailureMessage)}
	service := harness.newService(testInstance, zap.NewNop(), migrate.Options{})

	firstReport, firstError := service.Run(context.Background(), migrate.Request{
		Collection:      collection,
		OutputDirectory: outputDirectory,
		Items:           []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant), failingItem},
	})
	require.ErrorIs(testInstance, firstError, migrate.ErrItemFailed)
	require.Equal(testInstance, migrate.FailedManifestPath(outputDirectory, collection), firstReport.FailureManifestPath)
	require.FileExists(testInstance, firstReport.FailureManifestPath)

	harness.submitter.Errors = nil
	retryReport, retryError := service.Run(context.Background(), migrate.Request{
		Collection:      collection,
		OutputDirectory: outputDirectory,
		Items:           []solana.PublicKey{failingItem},
	})
	require.NoError(testInstance, retryError)
	require.Len(testInstance, retryReport.Outcomes, 1)
	require.Empty(testInstance, retryReport.FailureManifestPath)
	require.NoFileExists(testInstance, migrate.FailedManifestPath(outputDirectory, collection))

	retryEntries := readManifestEntries(testInstance, retryReport.ResultManifestPath)
	require.Len(testInstance, retryEntries, 1)
	require.Equal(testInstance, testSecondItemConstant, retryEntries[0]["item_mint"])
}

func TestRunRecordsMetrics(testInstance *testing.T) {
	harness := newServiceHarness(testInstance)
	harness.submitter.Errors = map[solana.PublicKey]error{
		solana.MustPublicKeyFromBase58(testThirdItemConstant): errors.New(testSubmitFailureMessage),
	}

	_, runError := harness.newService(testInstance, zap.NewNop(), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items: []solana.PublicKey{
			solana.MustPublicKeyFromBase58(testFirstItemConstant),
			solana.MustPublicKeyFromBase58(testSecondItemConstant),
			solana.MustPublicKeyFromBase58(testThirdItemConstant),
		},
	})
	require.Error(testInstance, runError)

	expectedItems := `
# HELP goose_migrate_items_total Items processed by migration runs, by outcome.
# TYPE goose_migrate_items_total counter
goose_migrate_items_total{outcome="failed"} 1
goose_migrate_items_total{outcome="migrated"} 2
`
	require.NoError(testInstance, testutil.GatherAndCompare(harness.metrics.Registry(), strings.NewReader(expectedItems), testItemsMetricName))

	metricFamilies, gatherError := harness.metrics.Registry().Gather()
	require.NoError(testInstance, gatherError)
	durationFamily := findMetricFamily(metricFamilies, testItemDurationMetricName)
	require.NotNil(testInstance, durationFamily)
	require.Equal(testInstance, uint64(3), durationFamily.GetMetric()[0].GetHistogram().GetSampleCount())

	metricsPath := filepath.Join(testInstance.TempDir(), "goose.prom")
	require.NoError(testInstance, harness.metrics.WriteToTextfile(metricsPath))
	metricsContent, readError := os.ReadFile(metricsPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(metricsContent), `goose_migrate_items_total{outcome="migrated"} 2`)
	require.Contains(testInstance, string(metricsContent), "goose_migrate_last_run_timestamp_seconds 1.7e+09")
}

func TestRunTagsLogsWithRunID(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	harness := newServiceHarness(testInstance)

	report, runError := harness.newService(testInstance, zap.New(observedCore), migrate.Options{}).Run(context.Background(), migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items:           []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant)},
	})
	require.NoError(testInstance, runError)

	startedEntries := observedLogs.FilterMessage(testRunStartedMessage).All()
	require.Len(testInstance, startedEntries, 1)
	require.Equal(testInstance, report.RunID, startedEntries[0].ContextMap()[testRunIDFieldName])
}

func TestRunReusesRunIDFromContext(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	harness := newServiceHarness(testInstance)
	runContext := utils.NewCommandContextAccessor().WithRunID(context.Background(), testInheritedRunID)

	report, runError := harness.newService(testInstance, zap.New(observedCore), migrate.Options{}).Run(runContext, migrate.Request{
		Collection:      solana.MustPublicKeyFromBase58(testCollectionConstant),
		OutputDirectory: testInstance.TempDir(),
		Items:           []solana.PublicKey{solana.MustPublicKeyFromBase58(testFirstItemConstant)},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, testInheritedRunID, report.RunID)

	startedEntries := observedLogs.FilterMessage(testRunStartedMessage).All()
	require.Len(testInstance, startedEntries, 1)
	require.Equal(testInstance, testInheritedRunID, startedEntries[0].ContextMap()[testRunIDFieldName])
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	payer, keyError := solana.NewRandomPrivateKey()
	require.NoError(testInstance, keyError)

	testCases := []struct {
		name         string
		dependencies migrate.ServiceDependencies
	}{
		{name: "missing_payer", dependencies: migrate.ServiceDependencies{Resolver: &testsupport.ResolverStub{}, StateFetcher: &testsupport.StateFetcherStub{}, Submitter: &testsupport.SubmitterStub{}}},
		{name: "missing_resolver", dependencies: migrate.ServiceDependencies{Payer: payer, StateFetcher: &testsupport.StateFetcherStub{}, Submitter: &testsupport.SubmitterStub{}}},
		{name: "missing_state_fetcher", dependencies: migrate.ServiceDependencies{Payer: payer, Resolver: &testsupport.ResolverStub{}, Submitter: &testsupport.SubmitterStub{}}},
		{name: "missing_submitter", dependencies: migrate.ServiceDependencies{Payer: payer, Resolver: &testsupport.ResolverStub{}, StateFetcher: &testsupport.StateFetcherStub{}}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			_, serviceError := migrate.NewService(testCase.dependencies, migrate.Options{})
			require.Error(subtest, serviceError)
		})
	}
}

func findMetricFamily(metricFamilies []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() == name {
			return metricFamily
		}
	}
	return nil
}
