// Package synchroniser applies an optimised Transaction Buffer against the
// Index Store under single-writer discipline, rebuilding documents from the
// authoritative triple store rather than attempting incremental removal.
package synchroniser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kreuzverweis/lucenesail/internal/document"
	"github.com/kreuzverweis/lucenesail/internal/errs"
	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/index"
	"github.com/kreuzverweis/lucenesail/internal/resource"
	"github.com/kreuzverweis/lucenesail/internal/triplestore"
	"github.com/kreuzverweis/lucenesail/internal/txbuffer"
)

// Synchroniser keeps the Index Store consistent with the underlying triple
// store by applying a Transaction Buffer's optimised entries in order.
type Synchroniser struct {
	idx   *index.Store
	store triplestore.Store
}

// New builds a Synchroniser over idx and store.
func New(idx *index.Store, store triplestore.Store) *Synchroniser {
	return &Synchroniser{idx: idx, store: store}
}

// Apply optimises buf, applies its entries in order inside a single Index
// Store transaction (so single-writer discipline spans the whole apply),
// and always resets buf on return, success or failure, since a buffer that
// failed partway through must never be replayed.
//
// If an entry fails partway through, the entries after it are abandoned:
// Apply logs how many were lost and that the index is left in a partial,
// corrupt state, then calls the Index Store's Rollback to restore a usable
// handle before returning the original error. The triple store itself is never
// rolled back; the next full resynchronisation (or a fresh set of buffered
// operations) is what actually repairs the index's state.
func (s *Synchroniser) Apply(ctx context.Context, buf *txbuffer.Buffer) error {
	defer buf.Reset()

	buf.Optimize()
	entries := buf.Entries()

	failedAt := -1
	err := s.idx.WithTransaction(func(tx *index.Transaction) error {
		for i, e := range entries {
			var err error
			switch e.Kind {
			case txbuffer.KindAddRemove:
				err = s.applyAddRemove(ctx, tx, e.AddRemove)
			case txbuffer.KindClearContext:
				err = s.applyClearContext(ctx, tx, e.ClearContext)
			case txbuffer.KindClearAll:
				err = tx.Clear()
			}
			if err != nil {
				failedAt = i
				return err
			}
		}
		return nil
	})
	if err != nil {
		lost := 0
		if failedAt >= 0 {
			lost = len(entries) - failedAt - 1
		}
		slog.Error("lucenesail: synchroniser apply failed, index left in a partial, corrupt state",
			"err", err, "entries_lost", lost)
		if rbErr := s.idx.Rollback(); rbErr != nil {
			slog.Error("lucenesail: rollback after failed apply also failed", "err", rbErr)
		}
		return err
	}
	return nil
}

// applyAddRemove rebuilds the index document for every subject touched by
// ar's adds or removes, from the current state of the triple store.
func (s *Synchroniser) applyAddRemove(ctx context.Context, tx *index.Transaction, ar *txbuffer.AddRemove) error {
	adds, removes := groupBySubject(ar)
	subjects := unionSubjects(adds, removes)

	type rebuildPlan struct {
		subject resource.ID
		exists  bool
	}
	plans := make([]rebuildPlan, len(subjects))
	var g errgroup.Group
	for i, subject := range subjects {
		i, subject := i, subject
		g.Go(func() error {
			exists, err := tx.Search().Exists(subject)
			if err != nil {
				return err
			}
			plans[i] = rebuildPlan{subject: subject, exists: exists}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, plan := range plans {
		subjectAdds := adds[plan.subject]
		subjectRemoves := removes[plan.subject]

		switch {
		case !plan.exists && len(subjectAdds) > 0:
			if len(subjectRemoves) > 0 {
				slog.Warn("lucenesail: ignoring removes for subject with no prior indexed document", "subject", plan.subject)
			}
			doc, err := document.NewDocument(plan.subject, subjectAdds)
			if err != nil {
				// None of the adds has a literal object: nothing to index.
				continue
			}
			if err := tx.Index(doc); err != nil {
				return err
			}
		case !plan.exists:
			slog.Warn("lucenesail: removing facts for subject with no indexed document", "subject", plan.subject)
		default:
			if err := tx.Delete(plan.subject); err != nil {
				return err
			}
			facts, err := s.currentStatements(ctx, plan.subject)
			if err != nil {
				return err
			}
			facts = append(facts, subjectAdds...)
			doc, err := document.NewDocument(plan.subject, facts)
			if err != nil {
				// Every contributing fact was removed and nothing was
				// re-added: the document is legitimately gone.
				continue
			}
			if err := tx.Index(doc); err != nil {
				return err
			}
		}
	}

	return nil
}

// applyClearContext deletes every document that has any context in
// cc.Contexts, then rebuilds from the triple store the documents of subjects
// that survive with at least one context outside the cleared set other than
// the null context.
func (s *Synchroniser) applyClearContext(ctx context.Context, tx *index.Transaction, cc *txbuffer.ClearContext) error {
	survivors := make(map[resource.ID]struct{})

	for c := range cc.Contexts {
		docs, err := tx.Search().DocumentsInContext(c)
		if err != nil {
			return err
		}
		for subject, contexts := range docs {
			for _, other := range contexts {
				if _, cleared := cc.Contexts[other]; cleared {
					continue
				}
				if other == resource.ID(resource.NullContext) {
					continue
				}
				survivors[subject] = struct{}{}
				break
			}
			if err := tx.Delete(subject); err != nil {
				return err
			}
		}
	}

	for subject := range survivors {
		facts, err := s.currentStatements(ctx, subject)
		if err != nil {
			return err
		}
		doc, err := document.NewDocument(subject, facts)
		if err != nil {
			continue
		}
		if err := tx.Index(doc); err != nil {
			return err
		}
	}

	return nil
}

// currentStatements queries the triple store for every current statement
// of subject, the source of truth a rebuilt document is built from.
func (s *Synchroniser) currentStatements(ctx context.Context, subject resource.ID) ([]fact.Fact, error) {
	cur, err := s.store.Statements(ctx, &subject, nil, nil, false)
	if err != nil {
		return nil, errs.NewStoreError(fmt.Sprintf("statements(%s)", subject), err)
	}
	defer cur.Close()

	var facts []fact.Fact
	for {
		f, ok, err := cur.Next()
		if err != nil {
			return nil, errs.NewStoreError(fmt.Sprintf("statements(%s)", subject), err)
		}
		if !ok {
			break
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func groupBySubject(ar *txbuffer.AddRemove) (adds, removes map[resource.ID][]fact.Fact) {
	adds = make(map[resource.ID][]fact.Fact)
	removes = make(map[resource.ID][]fact.Fact)
	for _, f := range ar.Adds {
		adds[f.Subject] = append(adds[f.Subject], f)
	}
	for _, f := range ar.Removes {
		removes[f.Subject] = append(removes[f.Subject], f)
	}
	return adds, removes
}

func unionSubjects(adds, removes map[resource.ID][]fact.Fact) []resource.ID {
	seen := make(map[resource.ID]struct{})
	var out []resource.ID
	for s := range adds {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for s := range removes {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
