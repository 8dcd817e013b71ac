// Command datasets normalizes a configured open-data dataset.
//
// Usage:
//
//	datasets marches       normalize the unified DECP file
//	datasets subventions   aggregate the listed grant files
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JonMunkholm/opendata/internal/application"
	"github.com/JonMunkholm/opendata/internal/logging"
)

const usage = "usage: datasets <marches|subventions>"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	if command != "marches" && command != "subventions" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	run, err := application.Start(command)
	if err != nil {
		application.Fail(context.Background(), "startup failed", err)
	}

	switch command {
	case "marches":
		res, err := application.RunMarches(run.Ctx, run.Env, run.Pipeline)
		if err != nil {
			run.Close()
			application.Fail(run.Ctx, "marches failed", err)
		}
		logging.FromContext(run.Ctx).Info("done", "contracts", res.Contracts.Len(), "modifications", res.Modifications.Len())
	case "subventions":
		res, err := application.RunSubventions(run.Ctx, run.Env, run.Pipeline)
		if err != nil {
			run.Close()
			application.Fail(run.Ctx, "subventions failed", err)
		}
		st := res.Stats
		logging.FromContext(run.Ctx).Info("done",
			"rows", st.Rows, "files_loaded", st.FilesLoaded, "files_out", st.FilesOut, "columns_out", st.ColumnsOut)
	}
	run.Close()
}
