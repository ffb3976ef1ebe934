package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/utils"
)

const (
	itemMigratedMessageTemplateConstant    = "Migrated %s in tx: %s"
	itemFailedMessageTemplateConstant      = "Failed to migrate %s: %s"
	transactionConfirmedTemplateConstant   = "%s successfully in tx: %s"
	manifestWrittenMessageTemplateConstant = "Wrote %d %s to %s"
	runSummaryMessageTemplateConstant      = "Migrated %d of %d items (%d failed)"
	unknownFailureMessageConstant          = "unknown error"
	logMessageProgressWriteFailedConstant  = "Unable to write progress line"
	logFieldProgressLineConstant           = "line"
)

// EventFormatter builds human-readable messages for migration events on one cluster.
type EventFormatter struct {
	Cluster chain.Cluster
}

// BuildItemMigratedMessage formats the line announcing a migrated item.
func (formatter EventFormatter) BuildItemMigratedMessage(itemMint solana.PublicKey, signature solana.Signature) string {
	return fmt.Sprintf(itemMigratedMessageTemplateConstant, itemMint, formatter.transactionLink(signature))
}

// BuildItemFailedMessage formats the line announcing a failed item.
func (formatter EventFormatter) BuildItemFailedMessage(itemMint string, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(itemFailedMessageTemplateConstant, itemMint, failureMessage)
}

// BuildTransactionConfirmedMessage formats the line announcing a confirmed administrative transaction.
func (formatter EventFormatter) BuildTransactionConfirmedMessage(action string, signature solana.Signature) string {
	return fmt.Sprintf(transactionConfirmedTemplateConstant, action, formatter.transactionLink(signature))
}

// BuildManifestWrittenMessage formats the line announcing a persisted manifest.
func (formatter EventFormatter) BuildManifestWrittenMessage(entryCount int, entryLabel string, manifestPath string) string {
	return fmt.Sprintf(manifestWrittenMessageTemplateConstant, entryCount, entryLabel, manifestPath)
}

// BuildRunSummaryMessage formats the closing line of a migration run.
func (formatter EventFormatter) BuildRunSummaryMessage(migratedCount int, totalCount int) string {
	return fmt.Sprintf(runSummaryMessageTemplateConstant, migratedCount, totalCount, totalCount-migratedCount)
}

func (formatter EventFormatter) transactionLink(signature solana.Signature) string {
	if len(strings.TrimSpace(string(formatter.Cluster))) == 0 {
		return signature.String()
	}
	return chain.TransactionExplorerURL(signature, formatter.Cluster)
}

// ProgressReporter writes formatted event lines to an output stream shared by concurrent workers.
type ProgressReporter struct {
	writer    *utils.SynchronizedWriter
	formatter EventFormatter
	logger    *zap.Logger
}

// NewProgressReporter constructs a ProgressReporter writing to output.
func NewProgressReporter(output io.Writer, cluster chain.Cluster, logger *zap.Logger) *ProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressReporter{
		writer:    utils.NewSynchronizedWriter(output),
		formatter: EventFormatter{Cluster: cluster},
		logger:    logger,
	}
}

// ItemMigrated reports a migrated item.
func (reporter *ProgressReporter) ItemMigrated(itemMint solana.PublicKey, signature solana.Signature) {
	reporter.writeLine(reporter.formatter.BuildItemMigratedMessage(itemMint, signature))
}

// ItemFailed reports an item that could not be migrated.
func (reporter *ProgressReporter) ItemFailed(itemMint string, failure error) {
	reporter.writeLine(reporter.formatter.BuildItemFailedMessage(itemMint, failure))
}

// TransactionConfirmed reports a confirmed administrative transaction.
func (reporter *ProgressReporter) TransactionConfirmed(action string, signature solana.Signature) {
	reporter.writeLine(reporter.formatter.BuildTransactionConfirmedMessage(action, signature))
}

// ManifestWritten reports a persisted manifest.
func (reporter *ProgressReporter) ManifestWritten(entryCount int, entryLabel string, manifestPath string) {
	reporter.writeLine(reporter.formatter.BuildManifestWrittenMessage(entryCount, entryLabel, manifestPath))
}

// RunCompleted reports the outcome counts of a migration run.
func (reporter *ProgressReporter) RunCompleted(migratedCount int, totalCount int) {
	reporter.writeLine(reporter.formatter.BuildRunSummaryMessage(migratedCount, totalCount))
}

// Println writes an arbitrary line.
func (reporter *ProgressReporter) Println(line string) {
	reporter.writeLine(line)
}

func (reporter *ProgressReporter) writeLine(line string) {
	if reporter == nil {
		return
	}
	if writeError := reporter.writer.WriteLine(line); writeError != nil {
		reporter.logger.Warn(logMessageProgressWriteFailedConstant, zap.String(logFieldProgressLineConstant, line), zap.Error(writeError))
	}
}
