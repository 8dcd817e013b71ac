package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/config"
	"github.com/JonMunkholm/opendata/internal/datasets"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/schema"
	"github.com/JonMunkholm/opendata/internal/table"
)

// MarchesResult holds the normalized contracts and their modifications.
type MarchesResult struct {
	Contracts     *table.Table
	Modifications *table.Table
}

// RunMarches normalizes the unified DECP file against its schema and the
// communities scope, then writes the contracts and the modifications of the
// kept contracts.
func RunMarches(ctx context.Context, env *Env, p *config.Pipeline) (*MarchesResult, error) {
	m := p.Marches
	if m == nil {
		return nil, errors.New("pipeline has no marches section")
	}
	log := logging.WithFields(ctx, "dataset", "marches")

	s, err := schema.Load(ctx, env.Source, m.Schema.URL, m.Schema.Root)
	if err != nil {
		return nil, err
	}
	log.Info("schema loaded", "url", m.Schema.URL, "properties", s.Len())

	scope, err := loadScope(ctx, env, p)
	if err != nil {
		return nil, err
	}

	u, err := datasets.LoadUnified(ctx, env.Source, m.UnifiedDataset.URL, m.UnifiedDataset.Root)
	if err != nil {
		return nil, err
	}

	cfg := datasets.DefaultFileConfig()
	cfg.BuyerColumn = m.BuyerColumn
	cfg.FilterRules = m.FilterRules

	contracts, err := datasets.NormalizeFile(ctx, u.Main, s, scope, cfg)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", m.UnifiedDataset.URL, err)
	}
	mods := datasets.KeepModificationsOf(u.Modifications, contracts, "id")

	if err := env.Sink.Write(ctx, m.Output, contracts); err != nil {
		return nil, fmt.Errorf("write %s: %w", m.Output, err)
	}
	if err := env.Sink.Write(ctx, m.ModificationsOutput, mods); err != nil {
		return nil, fmt.Errorf("write %s: %w", m.ModificationsOutput, err)
	}

	log.Info("marches normalized",
		"records", u.Main.Len(), "kept", contracts.Len(), "modifications", mods.Len())
	return &MarchesResult{Contracts: contracts, Modifications: mods}, nil
}
