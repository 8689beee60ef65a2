package kg

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"

	"github.com/teranos/ontomap/errors"
)

// Format is an RDF serialization
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
)

// ParseFormat accepts the spellings found in config files and import calls
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "turtle", "ttl", "text/turtle":
		return FormatTurtle, nil
	case "ntriples", "nt", "n-triples", "application/n-triples":
		return FormatNTriples, nil
	}
	return "", errors.NewInvalidInputError("unsupported RDF format %q", s)
}

// FormatForPath guesses the format from a file extension, defaulting to Turtle
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".nt") {
		return FormatNTriples
	}
	return FormatTurtle
}

func (f Format) knakk() rdf.Format {
	if f == FormatNTriples {
		return rdf.NTriples
	}
	return rdf.Turtle
}

// Decode reads every triple from r
func Decode(r io.Reader, format Format) ([]Triple, error) {
	dec := rdf.NewTripleDecoder(r, format.knakk())

	var out []Triple
	for {
		rt, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, errors.Wrapf(err, "decode %s after %d triples", format, len(out))
		}
		out = append(out, fromRDF(rt))
	}
	return out, nil
}

// ReadFile loads a graph from a Turtle or N-Triples file
func ReadFile(path string, format Format) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	triples, err := Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	g := NewGraph()
	g.AddAll(triples)
	return g, nil
}

// Encode writes triples to w. prefixes maps prefix to namespace and is only
// used by Turtle.
func Encode(w io.Writer, triples []Triple, format Format, prefixes map[string]string) error {
	enc := rdf.NewTripleEncoder(w, format.knakk())
	if format == FormatTurtle && len(prefixes) > 0 {
		enc.Namespaces = make(map[string]string, len(prefixes))
		for prefix, ns := range prefixes {
			enc.Namespaces[ns] = prefix
		}
	}

	for _, t := range triples {
		rt, err := toRDF(t)
		if err != nil {
			return errors.Wrapf(err, "convert %s", t.Key())
		}
		if err := enc.Encode(rt); err != nil {
			return errors.Wrap(err, "encode triple")
		}
	}
	return errors.Wrap(enc.Close(), "flush encoder")
}

// WriteFile serializes g to path, replacing the file atomically
func WriteFile(path string, g *Graph, format Format, prefixes map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, g.Triples(), format, prefixes); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "flush")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrapf(os.Rename(tmpName, path), "replace %s", path)
}

func fromRDF(t rdf.Triple) Triple {
	return Triple{
		Subject:   fromRDFTerm(t.Subj),
		Predicate: fromRDFTerm(t.Pred),
		Object:    fromRDFTerm(t.Obj),
	}
}

func fromRDFTerm(t rdf.Term) Term {
	switch t.Type() {
	case rdf.TermBlank:
		return Blank(t.String())
	case rdf.TermLiteral:
		lit, ok := t.(rdf.Literal)
		if !ok {
			return Literal(t.String())
		}
		if lang := lit.Lang(); lang != "" {
			return LangLiteral(lit.String(), lang)
		}
		return TypedLiteral(lit.String(), lit.DataType.String())
	default:
		return IRI(t.String())
	}
}

func toRDF(t Triple) (rdf.Triple, error) {
	subj, err := toRDFSubject(t.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(t.Predicate.Value)
	if err != nil {
		return rdf.Triple{}, err
	}
	obj, err := toRDFObject(t.Object)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

func toRDFSubject(t Term) (rdf.Subject, error) {
	switch t.Kind {
	case KindBlank:
		return rdf.NewBlank(t.Value)
	case KindIRI:
		return rdf.NewIRI(t.Value)
	default:
		return nil, errors.Newf("literal %q cannot be a subject", t.Value)
	}
}

func toRDFObject(t Term) (rdf.Object, error) {
	switch t.Kind {
	case KindBlank:
		return rdf.NewBlank(t.Value)
	case KindLiteral:
		if t.Lang != "" {
			return rdf.NewLangLiteral(t.Value, t.Lang)
		}
		if t.Datatype != "" {
			dt, err := rdf.NewIRI(t.Datatype)
			if err != nil {
				return nil, err
			}
			return rdf.NewTypedLiteral(t.Value, dt), nil
		}
		return rdf.NewLiteral(t.Value)
	default:
		return rdf.NewIRI(t.Value)
	}
}

func isNotExist(err error) bool {
	return os.IsNotExist(errors.UnwrapAll(err))
}
