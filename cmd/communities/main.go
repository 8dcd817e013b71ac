// Command communities downloads the OFGL reference tables of French local
// authorities and writes the per-level identifier tables plus the combined
// table read by the dataset commands. Any error exits with status 1.
package main

import (
	"context"

	"github.com/JonMunkholm/opendata/internal/application"
	"github.com/JonMunkholm/opendata/internal/logging"
)

func main() {
	run, err := application.Start("communities")
	if err != nil {
		application.Fail(context.Background(), "startup failed", err)
	}

	ext, err := application.RunCommunities(run.Ctx, run.Env, run.Pipeline)
	if err != nil {
		run.Close()
		application.Fail(run.Ctx, "extraction failed", err)
	}
	logging.FromContext(run.Ctx).Info("done", "levels", len(ext.Levels), "rows", ext.Combined.Len())
	run.Close()
}
