package infrastructure

import (
	"context"

	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// OperatorAlerter logs alerts and publishes them for whoever is on call
type OperatorAlerter struct {
	publisher events.Publisher
}

var _ interfaces.OperatorAlerter = (*OperatorAlerter)(nil)

// NewOperatorAlerter creates an alerter publishing through publisher
func NewOperatorAlerter(publisher events.Publisher) *OperatorAlerter {
	return &OperatorAlerter{publisher: publisher}
}

// Raise records the alert. It never fails the caller.
func (a *OperatorAlerter) Raise(ctx context.Context, alert events.OperatorAlertEvent) {
	fields := log.Fields{
		"alertKind": alert.Kind,
		"severity":  alert.Severity,
	}
	for key, value := range alert.Details {
		fields[key] = value
	}
	log.WithContext(ctx).WithFields(fields).Error(alert.Message)

	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(alert); err != nil {
		log.WithFields(log.Fields{
			"alertKind": alert.Kind,
			"error":     err,
		}).Error("Failed to publish operator alert")
	}
}
