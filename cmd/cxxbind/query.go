package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
)

// --- Helpers ---

// runQuery opens the Engine, runs fn and prints its results under command.
func runQuery(cmd *cobra.Command, command string, fn func(ctx context.Context, q *cxxbind.Query) (any, error)) error {
	e, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer e.Close()

	results, err := fn(cmd.Context(), e.Query())
	if err != nil {
		return outputError(command, err)
	}
	n := resultLen(results)
	return outputResult(CLIResult{
		Command:    command,
		Results:    results,
		TotalCount: &n,
	})
}

// optionalArg returns args[i], or "" when absent.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// --- File Commands ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "files", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			files, err := q.Files()
			if err != nil {
				return nil, err
			}
			return filesToCLI(files), nil
		})
	},
}

var flagTransitive bool

var includesCmd = &cobra.Command{
	Use:   "includes <file>",
	Short: "List the files a document includes",
	Long:  "Lists a document's direct #includes in source order, or with --transitive every file it reaches through includes.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "includes", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			if flagTransitive {
				files, err := q.TransitiveIncludes(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return nonNil(files), nil
			}
			incs, err := q.Includes(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return includesToCLI(incs), nil
		})
	},
}

func init() {
	includesCmd.Flags().BoolVar(&flagTransitive, "transitive", false, "list transitive includes")
}

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "List the documents that transitively include a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "deps", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			deps, err := q.Dependents(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return nonNil(deps), nil
		})
	},
}

// nonNil keeps empty path lists printing as [] rather than null.
func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}

// --- Lookup Commands ---

var lookupCmd = &cobra.Command{
	Use:   "lookup <file> <name> [scope]",
	Short: "Resolve a name as written in a scope",
	Long:  "Resolves a C++ name as if written inside scope (a qualified name; empty for the global namespace, a function for its body) using the binding graph anchored at file.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "lookup", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			items, err := q.Lookup(ctx, args[0], args[1], optionalArg(args, 2))
			if err != nil {
				return nil, err
			}
			return symbolResultsToCLI(items), nil
		})
	},
}

var typeCmd = &cobra.Command{
	Use:   "type <file> <name> [scope]",
	Short: "Resolve a name to a namespace, class or enum",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "type", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			tr, err := q.LookupType(ctx, args[0], args[1], optionalArg(args, 2))
			if err != nil || tr == nil {
				return nil, err
			}
			return typeResultToCLI(*tr), nil
		})
	},
}

var qualifiedNameCmd = &cobra.Command{
	Use:   "qualified-name <file> <name> [scope]",
	Short: "Print the fully qualified name a name resolves to",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "qualified-name", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			name, err := q.QualifiedName(ctx, args[0], args[1], optionalArg(args, 2))
			if err != nil || name == "" {
				return nil, err
			}
			return CLIName{Name: name}, nil
		})
	},
}

var minimalNameCmd = &cobra.Command{
	Use:   "minimal-name <file> <name> <target>",
	Short: "Print the shortest spelling of a name inside a target scope",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "minimal-name", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			name, err := q.MinimalName(ctx, args[0], args[1], args[2])
			if err != nil || name == "" {
				return nil, err
			}
			return CLIName{Name: name}, nil
		})
	},
}

// --- Hierarchy Commands ---

var basesCmd = &cobra.Command{
	Use:   "bases <file> <class>",
	Short: "List the transitive base classes of a class, nearest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "bases", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			bases, err := q.BaseClasses(ctx, args[0], args[1])
			if err != nil {
				return nil, err
			}
			return typeResultsToCLI(bases), nil
		})
	},
}

var derivedCmd = &cobra.Command{
	Use:   "derived <file> <class>",
	Short: "List the classes deriving from a class, depth-first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "derived", func(ctx context.Context, q *cxxbind.Query) (any, error) {
			derived, err := q.DerivedClasses(ctx, args[0], args[1])
			if err != nil {
				return nil, err
			}
			return typeResultsToCLI(derived), nil
		})
	},
}
