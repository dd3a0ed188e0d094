package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind/internal/logger"
)

var (
	flagSource string
	flagWarm   bool
	flagArgs   map[string]string
)

var scriptCmd = &cobra.Command{
	Use:   "script [path]",
	Short: "Run a Risor script against the stored snapshot",
	Long:  "Runs a Risor script with the lookup, dependency and store host functions. Relative paths resolve against scripts_dir, or the embedded report scripts (report/dependents.risor, report/hierarchy.risor) when it is unset. Documents the script inserts are committed only when it succeeds.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScript,
}

func init() {
	scriptCmd.Flags().StringVarP(&flagSource, "eval", "e", "", "run inline source instead of a file")
	scriptCmd.Flags().BoolVar(&flagWarm, "warm", false, "build every binding graph before the script runs")
	scriptCmd.Flags().StringToStringVar(&flagArgs, "arg", nil, "script global as name=value (repeatable)")
}

func runScript(cmd *cobra.Command, args []string) error {
	if (flagSource == "") == (len(args) == 0) {
		return outputError("script", errors.New("requires exactly one of a script path or --eval"))
	}

	e, err := openEngine()
	if err != nil {
		return outputError("script", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	if flagWarm {
		if err := e.Warm(ctx); err != nil {
			return outputError("script", err)
		}
	}

	start := time.Now()
	globals := scriptGlobals(flagArgs)
	if flagSource != "" {
		err = e.RunSource(ctx, flagSource, globals)
	} else {
		err = e.RunScript(ctx, args[0], globals)
	}
	if err != nil {
		return outputError("script", err)
	}
	logger.Debugf("script finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// scriptGlobals exposes --arg values to the script as string globals.
func scriptGlobals(args map[string]string) map[string]any {
	globals := make(map[string]any, len(args))
	for k, v := range args {
		globals[k] = v
	}
	return globals
}
