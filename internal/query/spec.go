package query

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/kreuzverweis/lucenesail/internal/errs"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// GeoBounds is a geo bounding-box query derived from NS.geoDegreesLat/
// Long/Tolerance. It is evaluated directly against the document's
// aggregated geo-point field rather than compiled into the Lucene-style
// query string QueryString carries, since bleve's query-string grammar has
// no geo-query production.
type GeoBounds struct {
	Lat, Long, Tolerance float64
}

// QuerySpec is one extracted textual sub-query.
type QuerySpec struct {
	SubjectVar  Term
	QueryString string
	Geo         *GeoBounds
	PropertyURI *resource.ID
	MatchVar    Var
	ScoreVar    *Var
	SnippetVar  *Var

	consumed []*Pattern
}

// Extract walks root, recognizes every textual sub-query group, and
// returns the extracted QuerySpecs alongside the residual query with every
// consumed group's patterns replaced by a Tautology.
//
// When incompleteQueryFail is true, any group that fails validation returns
// an *errs.InvalidQueryError immediately. When false, the group is logged
// and left untouched in the residual (its reserved-predicate patterns are
// evaluated by the underlying store as ordinary, almost certainly
// unsatisfiable, statement patterns).
func Extract(root Node, incompleteQueryFail bool) ([]*QuerySpec, Node, error) {
	patterns := collectPatterns(root)

	groups := groupByBlankVar(patterns)

	var specs []*QuerySpec
	consumed := make(map[*Pattern]bool)

	for _, g := range groups {
		spec, err := buildSpec(g)
		if err != nil {
			if incompleteQueryFail {
				return nil, nil, err
			}
			slog.Warn("lucenesail: skipping incomplete textual sub-query", "blank_var", g.blankVar, "reason", err)
			continue
		}
		specs = append(specs, spec)
		for _, p := range spec.consumed {
			consumed[p] = true
		}
	}

	residual := substitute(root, consumed)
	return specs, residual, nil
}

// group collects every reserved-predicate Pattern sharing one blank-node
// grouping variable `m` (the object of a `matches` pattern), plus the
// `matches` Pattern itself. `m` is purely structural: it is how the
// interpreter finds which query/property/score/snippet patterns belong
// together, and is distinct from QuerySpec.MatchVar (which binds to the
// hit's *subject* resource).
type group struct {
	blankVar Var
	matches  *Pattern
	members  []*Pattern
}

// groupByBlankVar finds every `matches` pattern and gathers the other
// reserved patterns whose subject is that pattern's blank grouping
// variable. Any reserved-predicate pattern never claimed this way (no
// enclosing `matches` group at all) is still returned, as a matches-less
// group of its own, so buildSpec's "missing NS.matches pattern" check can
// reject it rather than silently leaving it untouched.
func groupByBlankVar(patterns []*Pattern) []*group {
	var groups []*group
	claimed := make(map[*Pattern]bool)

	for _, p := range patterns {
		if p.SP.Predicate != PredicateMatches {
			continue
		}
		blankVar, ok := p.SP.Object.VarName()
		if !ok {
			// Invalid (object of matches is not a variable); buildSpec
			// will reject this below once grouped.
			groups = append(groups, &group{matches: p})
			continue
		}
		g := &group{blankVar: blankVar, matches: p}
		for _, other := range patterns {
			if other == p || !isReserved(other.SP.Predicate) {
				continue
			}
			if name, ok := other.SP.Subject.VarName(); ok && name == blankVar {
				g.members = append(g.members, other)
				claimed[other] = true
			}
		}
		groups = append(groups, g)
	}

	for _, p := range patterns {
		if p.SP.Predicate == PredicateMatches || !isReserved(p.SP.Predicate) || claimed[p] {
			continue
		}
		groups = append(groups, &group{members: []*Pattern{p}})
	}

	return groups
}

func buildSpec(g *group) (*QuerySpec, error) {
	if g.matches == nil {
		return nil, errs.NewInvalidQueryError("missing NS.matches pattern")
	}
	if g.matches.SP.Subject.IsLiteral() {
		return nil, errs.NewInvalidQueryError("subject of NS.matches must not be a literal")
	}
	if _, ok := g.matches.SP.Object.VarName(); !ok {
		return nil, errs.NewInvalidQueryError("object of NS.matches must be a free variable")
	}

	spec := &QuerySpec{
		SubjectVar: g.matches.SP.Subject,
		consumed:   append([]*Pattern{g.matches}, g.members...),
	}
	// MatchVar binds to each hit's subject resource; it only applies when
	// the subject itself is a free variable. A
	// subject bound to a concrete resource instead scopes the search
	// (evaluator's job), and there is nothing further to bind per hit.
	if name, ok := spec.SubjectVar.VarName(); ok {
		spec.MatchVar = name
	}

	var (
		queryLiteral       *string
		rangeFrom, rangeTo *string
		geoLat, geoLong    *string
		geoTolerance       *string
		sawType            bool
	)

	for _, m := range g.members {
		switch m.SP.Predicate {
		case PredicateQuery:
			lit, err := requireLiteral(m.SP.Object, "NS.query")
			if err != nil {
				return nil, err
			}
			queryLiteral = lit
		case PredicateProperty:
			if m.SP.Object.IsLiteral() {
				return nil, errs.NewInvalidQueryError("object of NS.property must be a URI, not a literal")
			}
			if m.SP.Object.IsResource() {
				id := *m.SP.Object.Resource
				spec.PropertyURI = &id
			}
		case PredicateScore:
			name, ok := m.SP.Object.VarName()
			if !ok {
				return nil, errs.NewInvalidQueryError("object of NS.score must be a free variable")
			}
			spec.ScoreVar = &name
		case PredicateSnippet:
			name, ok := m.SP.Object.VarName()
			if !ok {
				return nil, errs.NewInvalidQueryError("object of NS.snippet must be a free variable")
			}
			spec.SnippetVar = &name
		case PredicateRangeQueryFrom:
			lit, err := requireLiteral(m.SP.Object, "NS.rangeQueryFrom")
			if err != nil {
				return nil, err
			}
			rangeFrom = lit
		case PredicateRangeQueryTo:
			lit, err := requireLiteral(m.SP.Object, "NS.rangeQueryTo")
			if err != nil {
				return nil, err
			}
			rangeTo = lit
		case PredicateGeoDegreesLat:
			lit, err := requireLiteral(m.SP.Object, "NS.geoDegreesLat")
			if err != nil {
				return nil, err
			}
			geoLat = lit
		case PredicateGeoDegreesLong:
			lit, err := requireLiteral(m.SP.Object, "NS.geoDegreesLong")
			if err != nil {
				return nil, err
			}
			geoLong = lit
		case PredicateGeoDegreesTolerance:
			lit, err := requireLiteral(m.SP.Object, "NS.geoDegreesTolerance")
			if err != nil {
				return nil, err
			}
			geoTolerance = lit
		case PredicateRDFType:
			// Optional type marker (rdf:type NS.LuceneQuery); carries no
			// further meaning once the group has already been recognized
			// via its NS.matches pattern.
			sawType = true
		}
	}

	if !sawType {
		slog.Debug("lucenesail: NS.matches group has no type pattern, assuming NS.LuceneQuery", "blank_var", g.blankVar)
	}

	qs, geo, err := resolveQuery(queryLiteral, rangeFrom, rangeTo, geoLat, geoLong, geoTolerance)
	if err != nil {
		return nil, err
	}
	spec.QueryString = qs
	spec.Geo = geo

	return spec, nil
}

func requireLiteral(t Term, predicateName string) (*string, error) {
	if !t.IsLiteral() {
		return nil, errs.NewInvalidQueryError(fmt.Sprintf("object of %s must be a literal", predicateName))
	}
	return t.Literal, nil
}

// resolveQuery implements the query-string/range/geo priority order: a
// direct NS.query literal wins, then a range query, then a geo bounding
// box. Exactly one of the returned string or *GeoBounds is populated on
// success.
func resolveQuery(queryLiteral, rangeFrom, rangeTo, geoLat, geoLong, geoTolerance *string) (string, *GeoBounds, error) {
	if queryLiteral != nil {
		return *queryLiteral, nil, nil
	}

	if rangeFrom != nil && rangeTo != nil {
		from, to := *rangeFrom, *rangeTo
		if from > to {
			from, to = to, from
		}
		return fmt.Sprintf("[%s TO %s]", from, to), nil, nil
	}

	if geoLat != nil && geoLong != nil {
		lat, err := cast.ToFloat64E(*geoLat)
		if err != nil {
			return "", nil, errs.NewInvalidQueryError("NS.geoDegreesLat must be numeric: " + err.Error())
		}
		long, err := cast.ToFloat64E(*geoLong)
		if err != nil {
			return "", nil, errs.NewInvalidQueryError("NS.geoDegreesLong must be numeric: " + err.Error())
		}
		tolerance := 0.0
		if geoTolerance != nil {
			tolerance, err = cast.ToFloat64E(*geoTolerance)
			if err != nil {
				return "", nil, errs.NewInvalidQueryError("NS.geoDegreesTolerance must be numeric: " + err.Error())
			}
		}
		return "", &GeoBounds{Lat: lat, Long: long, Tolerance: tolerance}, nil
	}

	return "", nil, errs.NewInvalidQueryError("query_string could not be resolved: no NS.query, range, or geo literals present")
}
