// Package vectorutils constructs vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediguideco/mediguide/pkg/vector"
	"github.com/mediguideco/mediguide/pkg/vector/qdrantvec"
	"github.com/mediguideco/mediguide/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Path         string
	TargetURL    string
	Collection   string
	Model        string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Path,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrantvec.NewDriver(ctx, qdrantvec.Config{
			Target:     o.TargetURL,
			Collection: o.Collection,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
