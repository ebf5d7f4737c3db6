// Package alerting pkg/alerting/interfaces.go

//go:generate mockgen -destination=mock_alerting.go -package=alerting github.com/oceanops/fleetwatch/pkg/alerting AlertService

package alerting

import (
	"context"
)

// AlertService defines the interface for notification implementations.
type AlertService interface {
	// Alert sends an alert through the service
	Alert(ctx context.Context, alert *WebhookAlert) error

	// IsEnabled returns whether the alerter is enabled
	IsEnabled() bool
}
