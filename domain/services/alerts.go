package services

import (
	"context"
	"errors"

	"prizeledger/domain"
	"prizeledger/domain/interfaces"
	"prizeledger/events"
)

// raiseCompensationAlert pages an operator with the state captured by a failed compensation
func raiseCompensationAlert(ctx context.Context, alerter interfaces.OperatorAlerter, kind string, err error) {
	if alerter == nil {
		return
	}
	var compErr *domain.CompensationError
	if !errors.As(err, &compErr) {
		return
	}
	alerter.Raise(ctx, events.OperatorAlertEvent{
		Kind:     kind,
		Severity: events.AlertSeverityCritical,
		Message:  compErr.Error(),
		Details:  compErr.State,
	})
}
