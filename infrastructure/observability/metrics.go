package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prizeledger/config"
	"prizeledger/domain/interfaces"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider records domain measurements through OpenTelemetry
type MetricsProvider struct {
	config        *config.Config
	reader        sdkmetric.Reader // overrides the configured exporter when set
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	walletOperationsCounter    metric.Int64Counter
	versionConflictsCounter    metric.Int64Counter
	compensationsCounter       metric.Int64Counter
	ledgerWriteFailuresCounter metric.Int64Counter
	ticketsAllocatedCounter    metric.Int64Counter
	drawsCounter               metric.Int64Counter
}

var _ interfaces.MetricsRecorder = (*MetricsProvider)(nil)

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case ExporterConsole:
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

		case ExporterOTLP:
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(dialCtx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case ExporterNone, "":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
		)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("prizeledger")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.walletOperationsCounter, WalletOperationsTotal, "Total number of wallet operations by outcome"},
		{&mp.versionConflictsCounter, VersionConflictsTotal, "Total number of optimistic version conflicts"},
		{&mp.compensationsCounter, CompensationsTotal, "Total number of saga compensations by outcome"},
		{&mp.ledgerWriteFailuresCounter, LedgerWriteFailuresTotal, "Total number of ledger entries that could not be written"},
		{&mp.ticketsAllocatedCounter, TicketsAllocatedTotal, "Total number of raffle tickets allocated"},
		{&mp.drawsCounter, DrawsTotal, "Total number of raffle draws by outcome"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordWalletOperation counts a wallet operation by outcome
func (mp *MetricsProvider) RecordWalletOperation(operation, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.walletOperationsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordVersionConflict counts a lost compare-and-set
func (mp *MetricsProvider) RecordVersionConflict(operation string) {
	if !mp.isEnabled() {
		return
	}
	mp.versionConflictsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordCompensation counts a saga rollback by outcome
func (mp *MetricsProvider) RecordCompensation(saga, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.compensationsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelSaga, saga),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordLedgerWriteFailure counts a mutation left without its ledger entry
func (mp *MetricsProvider) RecordLedgerWriteFailure(transactionType string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerWriteFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelTransactionType, transactionType)),
	)
}

// RecordTicketsAllocated adds issued tickets
func (mp *MetricsProvider) RecordTicketsAllocated(quantity int64) {
	if !mp.isEnabled() || quantity <= 0 {
		return
	}
	mp.ticketsAllocatedCounter.Add(context.Background(), quantity)
}

// RecordDraw counts a draw by outcome
func (mp *MetricsProvider) RecordDraw(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.drawsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// isEnabled checks that instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
