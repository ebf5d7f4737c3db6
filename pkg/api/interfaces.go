// Package api pkg/api/interfaces.go

//go:generate mockgen -destination=mock_api.go -package=api github.com/oceanops/fleetwatch/pkg/api Sweeper,ApprovalDecider

package api

import (
	"context"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

// Sweeper triggers on-demand sweeps.
type Sweeper interface {
	TriggerNow() (string, error)
}

// ApprovalDecider applies a human decision to a pending approval
// request.
type ApprovalDecider interface {
	Decide(ctx context.Context, decision *models.Decision, now time.Time) (*models.ApprovalRequest, error)
}
