// Package index owns a bleve-backed full-text index (a segmented inverted
// index with per-field tokenisation, a document store, and scored
// retrieval) and exposes scoped reader/searcher/writer accessors with
// guaranteed release: a small state object owning the handles behind a
// mutex, with WithWriter/WithSearcher scopes so acquisition and release are
// always paired.
//
// bleve's Index type already refreshes on every call (it has no separate
// "stale reader" the caller must reopen), so the Reader/Searcher wrappers
// below model a staleness contract with a monotonic generation counter
// rather than a real teardown: a Searcher captured before a commit reports
// itself Stale once the store's generation has advanced, even though the
// underlying bleve handle it wraps was never literally closed.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kreuzverweis/lucenesail/internal/config"
	"github.com/kreuzverweis/lucenesail/internal/document"
	"github.com/kreuzverweis/lucenesail/internal/errs"
	"github.com/kreuzverweis/lucenesail/internal/query"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// lockFileName is bleve/scorch's on-disk write-lock file.
const lockFileName = "scorch.lock"

// Store owns the directory handle and analyzer for one full-text index.
// All mutation methods serialise through mu; searches may run concurrently
// with each other but observe the store's generation at the moment they
// were created.
type Store struct {
	mu         sync.Mutex
	idx        bleve.Index
	dir        string
	ramOnly    bool
	analyzer   string
	generation uint64
}

// Open acquires the directory handle described by cfg: on-disk or
// in-memory. If a stale write-lock is found on an on-disk directory, it is
// broken and the open retried. If no index exists yet, an empty one is
// created with the configured analyzer.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := buildMapping(cfg.Analyzer)

	s := &Store{
		dir:      cfg.LuceneDir,
		ramOnly:  cfg.UseRAMDir,
		analyzer: cfg.Analyzer,
	}

	idx, err := s.openOrCreate(m)
	if err != nil {
		return nil, err
	}
	s.idx = idx

	return s, nil
}

func (s *Store) openOrCreate(m mapping.IndexMapping) (bleve.Index, error) {
	if s.ramOnly {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, errs.NewIndexIOError("open in-memory index", err)
		}
		return idx, nil
	}

	if _, statErr := os.Stat(filepath.Join(s.dir, "index_meta.json")); errors.Is(statErr, os.ErrNotExist) {
		idx, err := bleve.New(s.dir, m)
		if err != nil {
			return nil, errs.NewIndexIOError("create index", err)
		}
		return idx, nil
	}

	idx, err := bleve.Open(s.dir)
	if err == nil {
		return idx, nil
	}

	if !s.breakStaleLock() {
		return nil, errs.NewIndexIOError("open index", err)
	}

	idx, err = bleve.Open(s.dir)
	if err != nil {
		return nil, errs.NewIndexIOError("open index after breaking stale lock", err)
	}
	return idx, nil
}

// breakStaleLock removes a leftover scorch write-lock file so a crashed
// writer does not permanently wedge the index. It logs a warning when it
// actually removes a lock.
func (s *Store) breakStaleLock() bool {
	lockPath := filepath.Join(s.dir, lockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return false
	}
	if err := os.Remove(lockPath); err != nil {
		return false
	}
	logStaleLockBroken(s.dir)
	return true
}

// buildMapping declares id and context as stored, unanalyzed (keyword)
// fields, and the geo-point field with bleve's geo-point mapping; every
// other field (the aggregated text field and each predicate-URI field) is
// left to bleve's dynamic default mapping, analyzed with the configured
// analyzer, stored and tokenised.
func buildMapping(analyzerName string) *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = analyzerName
	m.TypeField = "_type"
	m.DefaultMapping = bleve.NewDocumentMapping()

	unanalyzed := bleve.NewTextFieldMapping()
	unanalyzed.Analyzer = keyword.Name
	unanalyzed.Store = true
	unanalyzed.IncludeInAll = false

	m.DefaultMapping.AddFieldMappingsAt(document.IDField, unanalyzed)
	m.DefaultMapping.AddFieldMappingsAt(document.ContextField, unanalyzed)
	m.DefaultMapping.AddFieldMappingsAt(document.GeoContextField, bleve.NewGeoPointFieldMapping())

	return m
}

// Writer is the scoped mutation handle over the store's bleve index.
type Writer struct {
	idx bleve.Index
}

// Index inserts or overwrites the document with the given id.
func (w *Writer) Index(doc *document.Document) error {
	data := toBleveDocument(doc)
	if err := w.idx.Index(doc.ID.String(), data); err != nil {
		return errs.NewIndexIOError("index document", err)
	}
	return nil
}

// Delete removes the document with the given id, if any.
func (w *Writer) Delete(id resource.ID) error {
	if err := w.idx.Delete(id.String()); err != nil {
		return errs.NewIndexIOError("delete document", err)
	}
	return nil
}

// NewBatch returns an empty batch for bulk index/delete operations.
func (w *Writer) NewBatch() *bleve.Batch {
	return w.idx.NewBatch()
}

// Execute applies a batch built from NewBatch.
func (w *Writer) Execute(b *bleve.Batch) error {
	if err := w.idx.Batch(b); err != nil {
		return errs.NewIndexIOError("execute batch", err)
	}
	return nil
}

func toBleveDocument(doc *document.Document) map[string]any {
	contexts := doc.Contexts()
	contextValues := make([]string, len(contexts))
	for i, c := range contexts {
		contextValues[i] = c.String()
	}

	data := map[string]any{
		document.IDField:      doc.ID.String(),
		document.ContextField: contextValues,
		document.TextField:    doc.Text(),
	}

	for _, predicate := range doc.Predicates() {
		data[predicate.String()] = doc.PropertyValues(predicate)
	}

	if geo, ok := doc.Geo(); ok {
		data[document.GeoContextField] = geo
	}

	return data
}

// WithWriter acquires the writer, guarantees fn is the only mutation in
// flight, and always releases the store's mutex on return.
func (s *Store) WithWriter(fn func(w *Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&Writer{idx: s.idx})
}

// Transaction is a Writer plus a Searcher bound to the store's mutex for
// the whole of a Synchroniser apply, so single-writer discipline spans the
// entire optimised buffer rather than one subject at a time.
type Transaction struct {
	*Writer
	searcher *Searcher
	store    *Store
}

// Search returns a Searcher over the transaction's in-flight index state,
// for existence checks ("does a document already exist for this subject")
// during a rebuild.
func (tx *Transaction) Search() *Searcher {
	return tx.searcher
}

// Clear truncates the index from within an already-held transaction (see
// Store.Clear for the standalone, self-locking form).
func (tx *Transaction) Clear() error {
	idx, err := tx.store.clearLocked()
	if err != nil {
		return err
	}
	tx.Writer.idx = idx
	tx.searcher.Reader.idx = idx
	return nil
}

// WithTransaction holds the store's mutex for the whole of fn. On success
// it invalidates readers once, as the final commit step; on error it
// leaves the generation untouched (whatever mutation fn already applied to
// the bleve index is unconditionally visible to it regardless, since bleve
// persists synchronously — only the staleness signal to outside readers is
// withheld until a transaction completes cleanly).
func (s *Store) WithTransaction(fn func(tx *Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		Writer: &Writer{idx: s.idx},
		searcher: &Searcher{Reader: &Reader{
			idx:        s.idx,
			generation: atomic.LoadUint64(&s.generation),
			store:      s,
		}},
		store: s,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.invalidateReaders()
	return nil
}

// Reader is a scoped read handle; it is considered Stale once the store's
// generation has advanced past the one it was opened at.
type Reader struct {
	idx        bleve.Index
	generation uint64
	store      *Store
}

// Stale reports whether a commit has happened since this reader was
// opened; a stale reader must be discarded and a fresh one obtained.
func (r *Reader) Stale() bool {
	return atomic.LoadUint64(&r.store.generation) != r.generation
}

// Searcher wraps a Reader with query execution.
type Searcher struct {
	*Reader
}

// reader opens (conceptually) the current reader: since bleve's Index
// always reflects the latest committed state, this simply stamps the
// store's current generation.
func (s *Store) reader() *Reader {
	return &Reader{
		idx:        s.idx,
		generation: atomic.LoadUint64(&s.generation),
		store:      s,
	}
}

// WithReader acquires a Reader scoped to fn.
func (s *Store) WithReader(fn func(r *Reader) error) error {
	return fn(s.reader())
}

// WithSearcher acquires a Searcher built over the current reader, scoped to
// fn.
func (s *Store) WithSearcher(fn func(se *Searcher) error) error {
	return fn(&Searcher{Reader: s.reader()})
}

// Commit flushes the writer (bleve persists synchronously on every Index/
// Batch call, so this is a documented no-op flush point) and marks all
// previously-opened readers stale.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidateReaders()
	return nil
}

// InvalidateReaders marks every previously opened Reader and Searcher
// stale by advancing the store's generation; no handle is closed (see the
// package comment). Exposed so the Synchroniser can invalidate mid-apply
// without a full Commit when it needs freshly visible state for a rebuild
// read against this same index (not the triple store).
func (s *Store) InvalidateReaders() {
	s.invalidateReaders()
}

func (s *Store) invalidateReaders() {
	atomic.AddUint64(&s.generation, 1)
}

// ParseQuery parses a Lucene-style query string. If defaultField is empty,
// unqualified terms match the aggregated text field; otherwise they are
// scoped to the given predicate-URI field.
func (s *Store) ParseQuery(text string, defaultField string) (bleveq.Query, error) {
	field := defaultField
	if field == "" {
		field = document.TextField
	}

	if text == "" {
		return nil, errs.NewInvalidQueryError("query string must not be empty")
	}
	if !balancedBrackets(text) {
		return nil, errs.NewInvalidQueryError(fmt.Sprintf("unbalanced brackets in query %q", text))
	}

	qs := scopeToField(text, field)

	return bleve.NewQueryStringQuery(qs), nil
}

// ParseGeoQuery builds a bounding-box query over the document's aggregated
// geo-point field, the tolerance-degree box centered on bounds.Lat/Long.
// Unlike ParseQuery, this bypasses the query-string grammar entirely since
// bleve's query strings have no geo-query production.
func (s *Store) ParseGeoQuery(bounds query.GeoBounds) bleveq.Query {
	q := bleve.NewGeoBoundingBoxQuery(
		bounds.Long-bounds.Tolerance, bounds.Lat+bounds.Tolerance,
		bounds.Long+bounds.Tolerance, bounds.Lat-bounds.Tolerance,
	)
	q.SetField(document.GeoContextField)
	return q
}

// balancedBrackets performs a cheap sanity check before handing the string
// to bleve's query-string parser, so an obviously malformed query string is
// reported as InvalidQueryError instead of surfacing later as an opaque
// IndexIOError from deep inside Search.
func balancedBrackets(text string) bool {
	depth := 0
	for _, r := range text {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// scopeToField rewrites a bare query string (no explicit field qualifiers)
// into one scoped to field, preserving bleve's native range-bracket syntax.
func scopeToField(text, field string) string {
	if rangeExprPattern.MatchString(text) {
		return field + ":" + text
	}
	return field + ":(" + text + ")"
}

// Hit is a single match produced by Search or SearchWithin.
type Hit struct {
	Subject   resource.ID
	Score     float64
	Fragments map[string][]string
}

// Search executes q against the index's default searcher, returning hits
// ordered by descending score, as bleve's search result already is.
// highlightField, if non-empty, requests HTML-formatted highlight
// fragments for that stored field.
func (se *Searcher) Search(q bleveq.Query, size int, highlightField string) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{document.IDField}

	if highlightField != "" {
		req.Highlight = bleve.NewHighlightWithStyle("html")
		req.Highlight.AddField(highlightField)
	}

	result, err := se.idx.Search(req)
	if err != nil {
		return nil, errs.NewIndexIOError("search", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		hits = append(hits, Hit{
			Subject:   resource.ID(match.ID),
			Score:     match.Score,
			Fragments: match.Fragments,
		})
	}
	return hits, nil
}

// SearchWithin conjoins q with id = subject and must yield at most one hit.
// If more than one hit is returned, the single-document invariant has been
// violated: this is logged as a CorruptStateError and the first hit is
// used anyway, since the caller is a read path and must make some
// decision.
func (se *Searcher) SearchWithin(subject resource.ID, q bleveq.Query) (*Hit, error) {
	idTerm := bleve.NewTermQuery(subject.String())
	idTerm.SetField(document.IDField)

	conj := bleve.NewConjunctionQuery(idTerm, q)

	hits, err := se.Search(conj, 2, "")
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	if len(hits) > 1 {
		logMultipleHitsForSubject(errs.NewCorruptStateError(subject.String(), fmt.Sprintf("%d hits for a subject-scoped search, expected at most 1", len(hits))))
	}
	return &hits[0], nil
}

// Exists reports whether a document is currently indexed for subject,
// used by the Synchroniser to decide between create and rebuild.
func (se *Searcher) Exists(subject resource.ID) (bool, error) {
	idTerm := bleve.NewTermQuery(subject.String())
	idTerm.SetField(document.IDField)

	req := bleve.NewSearchRequestOptions(idTerm, 1, 0, false)
	result, err := se.idx.Search(req)
	if err != nil {
		return false, errs.NewIndexIOError("existence check", err)
	}
	return len(result.Hits) > 0, nil
}

// maxContextScan bounds how many documents DocumentsInContext will return
// in one call. A production-scale deployment would paginate; this module's
// ClearContext apply path processes the whole cleared set in memory, so a
// generous fixed bound is adequate.
const maxContextScan = 100000

// DocumentsInContext returns, for every document whose context field
// includes ctx, the subject and its full set of context values — so the
// Synchroniser's ClearContext apply path can decide which documents
// survive (still have a context outside the cleared set).
func (se *Searcher) DocumentsInContext(ctx resource.ID) (map[resource.ID][]resource.ID, error) {
	term := bleve.NewTermQuery(ctx.String())
	term.SetField(document.ContextField)

	req := bleve.NewSearchRequestOptions(term, maxContextScan, 0, false)
	req.Fields = []string{document.ContextField}

	result, err := se.idx.Search(req)
	if err != nil {
		return nil, errs.NewIndexIOError("context scan", err)
	}

	out := make(map[resource.ID][]resource.ID, len(result.Hits))
	for _, match := range result.Hits {
		subject := resource.ID(match.ID)
		var contexts []resource.ID
		for _, c := range fieldAsStrings(match.Fields[document.ContextField]) {
			contexts = append(contexts, resource.ID(c))
		}
		out[subject] = contexts
	}
	return out, nil
}

func fieldAsStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clear truncates the index: closes any writer and opens a fresh empty one.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.clearLocked(); err != nil {
		return err
	}
	s.invalidateReaders()
	return nil
}

// clearLocked does the actual close-and-reopen and stores the new handle
// on s; the caller must already hold mu and is responsible for
// invalidating readers once its own scope completes.
func (s *Store) clearLocked() (bleve.Index, error) {
	if err := s.idx.Close(); err != nil {
		return nil, errs.NewIndexIOError("close index before clear", err)
	}
	if !s.ramOnly {
		if err := os.RemoveAll(s.dir); err != nil {
			return nil, errs.NewIndexIOError("remove index directory before clear", err)
		}
	}

	m := buildMapping(s.analyzer)
	idx, err := s.openOrCreate(m)
	if err != nil {
		return nil, err
	}
	s.idx = idx
	return idx, nil
}

// Rollback closes and reopens an on-disk index handle, so the old handle's
// write lock is always released before a new one is acquired; an in-memory
// index cannot be reopened once closed, so it keeps its handle and only has
// its readers invalidated. bleve persists each Index/Batch call
// synchronously, so Rollback cannot undo documents already written
// mid-apply; it is the Synchroniser's last-resort response to an apply that
// failed partway through, leaving the index in whatever partial state the
// failure left it in but at least restoring a usable handle.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ramOnly {
		if err := s.idx.Close(); err != nil {
			return errs.NewIndexIOError("close index before rollback", err)
		}
		idx, err := s.openOrCreate(buildMapping(s.analyzer))
		if err != nil {
			return err
		}
		s.idx = idx
	}
	s.invalidateReaders()
	return nil
}

// Close releases the underlying bleve index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idx.Close(); err != nil {
		return errs.NewIndexIOError("close index", err)
	}
	return nil
}
