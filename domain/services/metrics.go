package services

import "prizeledger/domain/interfaces"

// Outcomes reported to the metrics recorder
const (
	outcomeSuccess            = "success"
	outcomeRejected           = "rejected"
	outcomeFailed             = "failed"
	outcomeCompensated        = "compensated"
	outcomeCompensationFailed = "compensation_failed"
	outcomeAlreadyDrawn       = "already_drawn"
)

// noopMetrics discards every measurement
type noopMetrics struct{}

func (noopMetrics) RecordWalletOperation(operation, outcome string) {}
func (noopMetrics) RecordVersionConflict(operation string)          {}
func (noopMetrics) RecordCompensation(saga, outcome string)         {}
func (noopMetrics) RecordLedgerWriteFailure(transactionType string) {}
func (noopMetrics) RecordTicketsAllocated(quantity int64)           {}
func (noopMetrics) RecordDraw(outcome string)                       {}

func metricsOrNoop(m interfaces.MetricsRecorder) interfaces.MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
