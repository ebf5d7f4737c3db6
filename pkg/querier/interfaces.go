// Package querier pkg/querier/interfaces.go
package querier

import (
	"context"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

//go:generate mockgen -destination=mock_querier.go -package=querier github.com/oceanops/fleetwatch/pkg/querier Client

// Client retrieves raw ping samples for a unit's devices over the
// trailing monitoring window.
type Client interface {
	Query(ctx context.Context, unit *models.Unit, window time.Duration) ([]models.ComponentSample, error)
	TestConnection(ctx context.Context) error
}
