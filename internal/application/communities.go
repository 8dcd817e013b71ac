package application

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/communities"
	"github.com/JonMunkholm/opendata/internal/config"
	"github.com/JonMunkholm/opendata/internal/logging"
)

// RunCommunities extracts the reference tables and writes one output per
// level plus the combined table. Any download or parse error aborts.
func RunCommunities(ctx context.Context, env *Env, p *config.Pipeline) (*communities.Extraction, error) {
	log := logging.FromContext(ctx)
	log.Info("extracting communities", "year", p.Communities.Year)

	ext, err := communities.Extract(ctx, env.Factory, p.Communities.Levels(), p.Communities.Year)
	if err != nil {
		return nil, err
	}
	for _, lv := range ext.Levels {
		if err := env.Sink.Write(ctx, lv.Name, lv.Data); err != nil {
			return nil, fmt.Errorf("write %s: %w", lv.Name, err)
		}
	}
	if err := env.Sink.Write(ctx, communities.CombinedName, ext.Combined); err != nil {
		return nil, fmt.Errorf("write %s: %w", communities.CombinedName, err)
	}

	log.Info("communities extracted", "levels", len(ext.Levels), "rows", ext.Combined.Len())
	return ext, nil
}

// loadScope reads the communities scope used by the dataset commands.
func loadScope(ctx context.Context, env *Env, p *config.Pipeline) (*communities.Scope, error) {
	ref := p.Communities.ScopeRef(env.OutputDir)
	scope, err := communities.LoadScope(ctx, env.Factory, ref, p.Communities.Selection)
	if err != nil {
		return nil, fmt.Errorf("%w (run the communities command first or set communities.scope)", err)
	}
	return scope, nil
}
