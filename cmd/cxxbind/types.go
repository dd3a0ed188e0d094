package main

import (
	"github.com/jward/cxxbind"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly declaration.
type CLISymbol struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	Type          string `json:"type,omitempty"`
	File          string `json:"file,omitempty"`
	Line          int    `json:"line"`
	Column        int    `json:"column"`
}

// CLIType is a JSON-friendly binding node.
type CLIType struct {
	Name         string      `json:"name"`
	Kind         string      `json:"kind,omitempty"`
	Declarations []CLISymbol `json:"declarations"`
}

// CLIFile is a JSON-friendly stored file.
type CLIFile struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
}

// CLIInclude is one direct #include.
type CLIInclude struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// CLIName is the answer of qualified-name and minimal-name.
type CLIName struct {
	Name string `json:"name"`
}

func symbolResultToCLI(sr cxxbind.SymbolResult) CLISymbol {
	return CLISymbol{
		Name:          sr.Name,
		QualifiedName: sr.QualifiedName,
		Kind:          sr.Kind,
		Type:          sr.Type,
		File:          sr.File,
		Line:          sr.Line,
		Column:        sr.Column,
	}
}

func symbolResultsToCLI(srs []cxxbind.SymbolResult) []CLISymbol {
	out := make([]CLISymbol, 0, len(srs))
	for _, sr := range srs {
		out = append(out, symbolResultToCLI(sr))
	}
	return out
}

func typeResultToCLI(tr cxxbind.TypeResult) CLIType {
	return CLIType{
		Name:         tr.Name,
		Kind:         tr.Kind,
		Declarations: symbolResultsToCLI(tr.Declarations),
	}
}

func typeResultsToCLI(trs []cxxbind.TypeResult) []CLIType {
	out := make([]CLIType, 0, len(trs))
	for _, tr := range trs {
		out = append(out, typeResultToCLI(tr))
	}
	return out
}

func filesToCLI(files []*cxxbind.File) []CLIFile {
	out := make([]CLIFile, 0, len(files))
	for _, f := range files {
		out = append(out, CLIFile{ID: f.ID, Path: f.Path, Hash: f.Hash})
	}
	return out
}

func includesToCLI(incs []cxxbind.Include) []CLIInclude {
	out := make([]CLIInclude, 0, len(incs))
	for _, inc := range incs {
		out = append(out, CLIInclude{File: inc.FileName, Line: inc.Line})
	}
	return out
}
