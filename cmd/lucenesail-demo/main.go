// Command lucenesail-demo wires the in-memory triple store fake, the
// bleve-backed Index Store, the Synchroniser, and the Query Interpreter
// together end to end, as a runnable example of the whole pipeline. It is
// adapter-only: no part of the core five components lives here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kreuzverweis/lucenesail/internal/config"
	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/index"
	"github.com/kreuzverweis/lucenesail/internal/query"
	"github.com/kreuzverweis/lucenesail/internal/query/iterator"
	"github.com/kreuzverweis/lucenesail/internal/resource"
	synchroniser "github.com/kreuzverweis/lucenesail/internal/sync"
	"github.com/kreuzverweis/lucenesail/internal/triplestore"
	"github.com/kreuzverweis/lucenesail/internal/triplestore/memstore"
	"github.com/kreuzverweis/lucenesail/internal/txbuffer"
)

func main() {
	dir := flag.String("dir", "", "on-disk index directory; empty uses an in-memory index")
	analyzer := flag.String("analyzer", config.DefaultAnalyzer, "bleve text analyzer name")
	term := flag.String("query", "alice", "text query to run against the demo data")
	flag.Parse()

	if err := run(*dir, *analyzer, *term); err != nil {
		slog.Error("lucenesail-demo failed", "error", err)
		os.Exit(1)
	}
}

func run(dir, analyzer, term string) error {
	options := map[string]string{"analyzer": analyzer}
	if dir == "" {
		options["useramdir"] = "true"
	} else {
		options["lucenedir"] = dir
	}

	cfg, err := config.Load(options)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	idx, err := index.Open(cfg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	store := memstore.New()
	buf := txbuffer.New()
	store.AddListener(func(ev triplestore.FactEvent) {
		if ev.Added {
			buf.Add(ev.Fact)
		} else {
			buf.Remove(ev.Fact)
		}
	})

	synchro := synchroniser.New(idx, store)
	seedDemoData(store)

	ctx := context.Background()
	if err := synchro.Apply(ctx, buf); err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}

	return runDemoQuery(ctx, idx, store, term)
}

// seedDemoData loads a handful of people with names and bios into the
// triple store, the way a real deployment's own client would.
func seedDemoData(store *memstore.Store) {
	people := []struct {
		subject, name, bio string
	}{
		{"urn:people:alice", "Alice Smith", "Alice builds full-text search systems."},
		{"urn:people:bob", "Bob Jones", "Bob maintains the triple store."},
		{"urn:people:carol", "Carol Lee", "Carol reviews every pull request Alice sends."},
	}

	for _, p := range people {
		nameFact, _ := fact.New(resource.FromURI(p.subject), resource.FromURI("urn:vocab:name"), fact.NewLiteral(p.name), "")
		bioFact, _ := fact.New(resource.FromURI(p.subject), resource.FromURI("urn:vocab:bio"), fact.NewLiteral(p.bio), "")
		store.Add(nameFact)
		store.Add(bioFact)
	}
}

// runDemoQuery builds a structured query equivalent to:
//
//	?s NS.matches [ NS.query "<term>" ; NS.score ?sc ] .
//
// extracts its QuerySpec, and prints every resulting binding row.
func runDemoQuery(ctx context.Context, idx *index.Store, store *memstore.Store, term string) error {
	blank := query.Var("m")
	matches := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm("s"),
		Predicate: query.PredicateMatches,
		Object:    query.VarTerm(blank),
	}}
	queryPattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateQuery,
		Object:    query.LiteralTerm(term),
	}}
	scorePattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateScore,
		Object:    query.VarTerm("sc"),
	}}
	root := &query.Join{Left: &query.Join{Left: matches, Right: queryPattern}, Right: scorePattern}

	specs, residual, err := query.Extract(root, true)
	if err != nil {
		return fmt.Errorf("extract query spec: %w", err)
	}

	it, err := iterator.New(ctx, idx, store, specs, residual, nil, false, 0)
	if err != nil {
		return fmt.Errorf("build iterator: %w", err)
	}
	defer it.Close()

	fmt.Printf("results for query_string=%q:\n", term)
	for {
		row, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("advance iterator: %w", err)
		}
		if !ok {
			break
		}
		s := row["s"]
		sc := row["sc"]
		subject := ""
		if s.Resource != nil {
			subject = string(*s.Resource)
		}
		score := ""
		if sc.Literal != nil {
			score = *sc.Literal
		}
		fmt.Printf("  s=%s score=%s\n", subject, score)
	}
	return nil
}
