package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tTYPE\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			s.QualifiedName, s.Kind, s.Type, s.File, s.Line)
	}
	tw.Flush()
}

// formatTypesText prints one line per node followed by its declarations.
func formatTypesText(w io.Writer, types []CLIType) {
	for _, t := range types {
		kind := t.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(w, "%s (%s)\n", t.Name, kind)
		for _, d := range t.Declarations {
			fmt.Fprintf(w, "  %s:%d:%d\n", d.File, d.Line, d.Column)
		}
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\n", f.ID, f.Path)
	}
	tw.Flush()
}

// formatIncludesText formats CLIInclude results as "file:line" lines.
func formatIncludesText(w io.Writer, incs []CLIInclude) {
	for _, inc := range incs {
		fmt.Fprintf(w, "%s:%d\n", inc.File, inc.Line)
	}
}

// formatPathsText prints one path per line.
func formatPathsText(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	return writeResultText(os.Stdout, result)
}

func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLIType:
		formatTypesText(w, v)
	case CLIType:
		formatTypesText(w, []CLIType{v})
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIInclude:
		formatIncludesText(w, v)
	case []string:
		formatPathsText(w, v)
	case CLIName:
		fmt.Fprintln(w, v.Name)
	case nil:
		// No output for nil results (e.g., lookup-type with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLISymbol:
		return len(r)
	case []CLIType:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIInclude:
		return len(r)
	case []string:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
