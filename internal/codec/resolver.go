package codec

import (
	"context"
	"fmt"
	"log"

	"github.com/vrsandeep/squish-go/internal/models"
)

// DefaultFallbackOrder is the preference order tried when a requested codec is unavailable.
var DefaultFallbackOrder = []models.Format{models.JPEG, models.WEBP, models.PNG, models.AVIF, models.JXL}

// NoEncoderAvailableError is returned when neither the requested format nor any
// fallback candidate could be loaded.
type NoEncoderAvailableError struct {
	Requested models.Format
}

func (e *NoEncoderAvailableError) Error() string {
	return fmt.Sprintf("no encoder available for %s or any fallback format", e.Requested)
}

// Resolver maps a requested format to the format that will actually be encoded.
type Resolver struct {
	registry *Registry
	order    []models.Format
}

// NewResolver creates a resolver probing fallbacks in the given order. An empty
// order uses DefaultFallbackOrder.
func NewResolver(registry *Registry, order []models.Format) *Resolver {
	if len(order) == 0 {
		order = DefaultFallbackOrder
	}
	return &Resolver{registry: registry, order: order}
}

// Resolve returns the effective format and whether it is a fallback.
func (r *Resolver) Resolve(ctx context.Context, requested models.Format) (models.Format, bool, error) {
	if r.registry.EnsureLoaded(ctx, requested) {
		return requested, false, nil
	}
	for _, candidate := range r.order {
		if candidate == requested {
			continue
		}
		if r.registry.EnsureLoaded(ctx, candidate) {
			log.Printf("Codec %s unavailable, falling back to %s", requested, candidate)
			return candidate, true, nil
		}
	}
	return "", false, &NoEncoderAvailableError{Requested: requested}
}
