// Package cxxbind resolves C++ names over a snapshot of parsed documents.
//
// An upstream parser writes each translation unit's documents (symbol trees
// plus resolved includes) to a SQLite database. cxxbind loads the stored
// documents as an immutable snapshot and answers three kinds of questions
// about it:
//
//  1. Dependencies: which files transitively include a given file.
//  2. Lookup: which declarations a name written at some scope denotes,
//     following C++ scope, using-directive, base-class and template rules.
//  3. Naming: the fully qualified name of a declaration, and the shortest
//     name that still denotes it from a given scope.
//
// # Usage
//
//	e, err := cxxbind.New(".cxxbind/index.db", "")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	deps, err := e.FilesDependingOn(ctx, "util.h")
//
//	q := e.Query()
//	items, err := q.Lookup(ctx, "main.cpp", "Widget", "app::run")
//
// # Caching
//
// The snapshot is reloaded when the database's write generation changes.
// Binding graphs are built lazily per anchor document and cached until the
// next reload. [Engine.Warm] builds graphs for many documents concurrently.
//
// # Scripts
//
// Risor scripts run through [Engine.RunScript] with host functions for
// lookup, dependency queries and document inserts. See the internal/runtime
// package for the full set of globals exposed to scripts.
package cxxbind
