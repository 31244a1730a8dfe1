package observability

import (
	"context"
	"testing"

	"prizeledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newReaderProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(cfg)
	mp.reader = reader
	require.NoError(t, mp.Initialize(context.Background()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			return sum.DataPoints
		}
	}
	return nil
}

func TestMetricsProvider_RecordsDomainCounters(t *testing.T) {
	mp, reader := newReaderProvider(t)

	mp.RecordDraw("success")
	mp.RecordDraw("success")
	mp.RecordDraw("already_drawn")
	mp.RecordTicketsAllocated(3)
	mp.RecordTicketsAllocated(0)
	mp.RecordCompensation("purchase", "compensated")

	draws := collectSum(t, reader, DrawsTotal)
	require.Len(t, draws, 2)
	byOutcome := map[string]int64{}
	for _, dp := range draws {
		outcome, _ := dp.Attributes.Value(attribute.Key(LabelOutcome))
		byOutcome[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byOutcome["success"])
	assert.Equal(t, int64(1), byOutcome["already_drawn"])

	tickets := collectSum(t, reader, TicketsAllocatedTotal)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(3), tickets[0].Value)

	compensations := collectSum(t, reader, CompensationsTotal)
	require.Len(t, compensations, 1)
	saga, _ := compensations[0].Attributes.Value(attribute.Key(LabelSaga))
	assert.Equal(t, "purchase", saga.AsString())
}

func TestMetricsProvider_DisabledIsSilent(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		exporter string
	}{
		{"otel disabled", false, ExporterOTLP},
		{"exporter none", true, ExporterNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			cfg.OTelEnabled = tt.enabled
			cfg.OTelExporterType = tt.exporter

			mp := NewMetricsProvider(cfg)
			require.NoError(t, mp.Initialize(context.Background()))

			assert.False(t, mp.isEnabled())
			assert.NotPanics(t, func() {
				mp.RecordWalletOperation("deposit", "success")
				mp.RecordVersionConflict("deposit")
				mp.RecordLedgerWriteFailure("deposit")
				mp.RecordDraw("failed")
			})
			assert.NoError(t, mp.Shutdown(context.Background()))
		})
	}
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())
	assert.Error(t, err)
}
