package query

import "github.com/kreuzverweis/lucenesail/internal/resource"

// Namespace is the base URI of the reserved extension vocabulary. It
// mirrors the conventional LuceneSail contrib namespace from the system
// this module reimplements.
const Namespace = "http://www.openrdf.org/contrib/lucenesail#"

// Reserved predicate identifiers.
var (
	PredicateMatches           = resource.FromURI(Namespace + "matches")
	PredicateQuery             = resource.FromURI(Namespace + "query")
	PredicateProperty          = resource.FromURI(Namespace + "property")
	PredicateScore             = resource.FromURI(Namespace + "score")
	PredicateSnippet           = resource.FromURI(Namespace + "snippet")
	PredicateRangeQueryFrom    = resource.FromURI(Namespace + "rangeQueryFrom")
	PredicateRangeQueryTo      = resource.FromURI(Namespace + "rangeQueryTo")
	PredicateGeoDegreesLat     = resource.FromURI(Namespace + "geoDegreesLat")
	PredicateGeoDegreesLong    = resource.FromURI(Namespace + "geoDegreesLong")
	PredicateGeoDegreesTolerance = resource.FromURI(Namespace + "geoDegreesTolerance")
	TypeLuceneQuery            = resource.FromURI(Namespace + "LuceneQuery")
	PredicateRDFType           = resource.FromURI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
)

// isReserved reports whether predicate belongs to the extension namespace.
func isReserved(predicate resource.ID) bool {
	switch predicate {
	case PredicateMatches, PredicateQuery, PredicateProperty, PredicateScore,
		PredicateSnippet, PredicateRangeQueryFrom, PredicateRangeQueryTo,
		PredicateGeoDegreesLat, PredicateGeoDegreesLong, PredicateGeoDegreesTolerance,
		PredicateRDFType:
		return true
	default:
		return false
	}
}
