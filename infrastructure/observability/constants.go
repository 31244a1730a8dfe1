package observability

// Metric name prefixes
const (
	MetricPrefix = "prizeledger"
)

// Metric names
const (
	// Wallet metrics
	WalletOperationsTotal = MetricPrefix + ".wallet.operations_total"
	VersionConflictsTotal = MetricPrefix + ".wallet.version_conflicts_total"

	// Saga metrics
	CompensationsTotal = MetricPrefix + ".saga.compensations_total"

	// Ledger metrics
	LedgerWriteFailuresTotal = MetricPrefix + ".ledger.write_failures_total"

	// Raffle metrics
	TicketsAllocatedTotal = MetricPrefix + ".raffle.tickets_allocated_total"
	DrawsTotal            = MetricPrefix + ".raffle.draws_total"
)

// Label keys
const (
	LabelOperation       = "operation"
	LabelOutcome         = "outcome"
	LabelSaga            = "saga"
	LabelTransactionType = "transaction_type"
)

// Exporter types
const (
	ExporterConsole = "console"
	ExporterOTLP    = "otlp"
	ExporterNone    = "none"
)
