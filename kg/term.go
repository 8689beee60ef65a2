// Package kg holds the RDF data model: terms, triples, an indexed in-memory
// graph, Turtle/N-Triples codecs and the writable graph new assertions
// accumulate in before being drained.
package kg

import (
	"strconv"
	"strings"

	"github.com/knakk/rdf"
)

// Namespace URIs
const (
	NamespaceRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceOWL     = "http://www.w3.org/2002/07/owl#"
	NamespaceXSD     = "http://www.w3.org/2001/XMLSchema#"
	NamespaceDCTerms = "http://purl.org/dc/terms/"
	NamespaceDCAT    = "http://www.w3.org/ns/dcat#"
	NamespaceFOAF    = "http://xmlns.com/foaf/0.1/"
	NamespaceSKOS    = "http://www.w3.org/2004/02/skos/core#"
)

// Well-known IRIs
const (
	RDFType = NamespaceRDF + "type"

	RDFSLabel      = NamespaceRDFS + "label"
	RDFSDomain     = NamespaceRDFS + "domain"
	RDFSRange      = NamespaceRDFS + "range"
	RDFSSubClassOf = NamespaceRDFS + "subClassOf"
	RDFSClass      = NamespaceRDFS + "Class"

	OWLClass            = NamespaceOWL + "Class"
	OWLObjectProperty   = NamespaceOWL + "ObjectProperty"
	OWLDatatypeProperty = NamespaceOWL + "DatatypeProperty"
	OWLNamedIndividual  = NamespaceOWL + "NamedIndividual"

	XSDString   = NamespaceXSD + "string"
	XSDInteger  = NamespaceXSD + "integer"
	XSDDecimal  = NamespaceXSD + "decimal"
	XSDDouble   = NamespaceXSD + "double"
	XSDBoolean  = NamespaceXSD + "boolean"
	XSDDate     = NamespaceXSD + "date"
	XSDDateTime = NamespaceXSD + "dateTime"

	DCTermsTitle       = NamespaceDCTerms + "title"
	DCTermsAlternative = NamespaceDCTerms + "alternative"
	DCTermsDescription = NamespaceDCTerms + "description"

	DCATDataset = NamespaceDCAT + "Dataset"
)

// DefaultPrefixes maps prefix to namespace for serialization
var DefaultPrefixes = map[string]string{
	"rdf":     NamespaceRDF,
	"rdfs":    NamespaceRDFS,
	"owl":     NamespaceOWL,
	"xsd":     NamespaceXSD,
	"dcterms": NamespaceDCTerms,
	"dcat":    NamespaceDCAT,
	"foaf":    NamespaceFOAF,
	"skos":    NamespaceSKOS,
}

// TermKind discriminates IRIs, blank nodes and literals
type TermKind uint8

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	}
	return "unknown"
}

// Term is an RDF term. Datatype and Lang apply to literals only.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

// IRI returns an IRI term
func IRI(v string) Term { return Term{Kind: KindIRI, Value: v} }

// Blank returns a blank node term labelled id (without the "_:" prefix)
func Blank(id string) Term { return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")} }

// Literal returns a plain string literal
func Literal(v string) Term { return Term{Kind: KindLiteral, Value: v} }

// TypedLiteral returns a literal with an XSD (or other) datatype
func TypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// IsIRI reports whether t is an IRI
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsLiteral reports whether t is a literal
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsZero reports whether t is the zero Term
func (t Term) IsZero() bool { return t == Term{} }

// Key is a stable identity used by indexes and deduplication
func (t Term) Key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		key := strconv.Quote(t.Value)
		if t.Lang != "" {
			return key + "@" + t.Lang
		}
		if t.Datatype != "" {
			return key + "^^<" + t.Datatype + ">"
		}
		return key
	}
}

// String renders t the way N-Triples does
func (t Term) String() string { return t.Key() }

// Triple is a single RDF statement
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// T builds a triple from IRI subject and predicate
func T(subject, predicate string, object Term) Triple {
	return Triple{Subject: IRI(subject), Predicate: IRI(predicate), Object: object}
}

// Key identifies the triple for deduplication
func (t Triple) Key() string {
	return t.Subject.Key() + " " + t.Predicate.Key() + " " + t.Object.Key()
}

// Valid reports whether the triple is well formed RDF and every IRI in it
// would survive serialization
func (t Triple) Valid() bool {
	if t.Subject.Value == "" || t.Predicate.Value == "" {
		return false
	}
	if t.Subject.Kind == KindLiteral || t.Predicate.Kind != KindIRI {
		return false
	}
	if t.Subject.Kind == KindIRI && !ValidIRI(t.Subject.Value) {
		return false
	}
	if !ValidIRI(t.Predicate.Value) {
		return false
	}
	switch t.Object.Kind {
	case KindLiteral:
		return t.Object.Datatype == "" || ValidIRI(t.Object.Datatype)
	case KindIRI:
		return ValidIRI(t.Object.Value)
	default:
		return t.Object.Value != ""
	}
}

// ValidIRI reports whether s is non-empty and free of the characters an IRI
// reference may not contain
func ValidIRI(s string) bool {
	_, err := rdf.NewIRI(s)
	return err == nil
}

// LocalName returns the part of an IRI after the last '#' or '/'
func LocalName(iri string) string {
	iri = strings.TrimRight(iri, "/#")
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// InferDatatype picks the XSD datatype that fits a literal's lexical form
func InferDatatype(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return XSDString
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return XSDInteger
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "xXpP") {
		if strings.ContainsAny(s, "eE") {
			return XSDDouble
		}
		return XSDDecimal
	}
	if s == "true" || s == "false" {
		return XSDBoolean
	}
	if isISODate(s) {
		return XSDDate
	}
	return XSDString
}

func isISODate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
