// Package classify maps messy customs strings (transport modes, customs
// offices, HS codes, countries, incoterms, regime keys) onto the fixed label
// sets used by importer summaries.
//
// Classification is total: any input, including the empty string, yields a
// label. Unmatched input yields the dimension's fallback label.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ignite/tradeintel/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Classifier is safe for concurrent use. Tables are folded once at
// construction.
type Classifier struct {
	tables    Tables
	transport []foldedRule
	port      []foldedRule
	origin    []foldedRule
	labels    map[domain.Dimension][]string
}

type foldedRule struct {
	label  string
	tokens []string
}

// New builds a classifier over t.
func New(t Tables) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		tables:    t,
		transport: foldRules(t.Transport),
		port:      foldRules(t.Port),
		origin:    foldRules(t.Origin),
		labels:    make(map[domain.Dimension][]string, len(domain.Dimensions)),
	}
	for _, dim := range domain.Dimensions {
		c.labels[dim] = t.labels(dim)
	}
	return c, nil
}

// Default returns a classifier over DefaultTables.
func Default() *Classifier {
	c, err := New(DefaultTables())
	if err != nil {
		panic("classify: default tables invalid: " + err.Error())
	}
	return c
}

// Version reports the tables version.
func (c *Classifier) Version() string { return c.tables.Version }

// Labels returns every label of dim in summary order, fallback last.
func (c *Classifier) Labels(dim domain.Dimension) []string {
	return c.labels[dim]
}

// Fallback returns the catch-all label of dim.
func (c *Classifier) Fallback(dim domain.Dimension) string {
	return c.tables.fallback(dim)
}

// Classify returns the label for raw within dim. For DimPort, raw is the
// already combined office string; see ClassifyPort.
func (c *Classifier) Classify(dim domain.Dimension, raw string) string {
	switch dim {
	case domain.DimTransport:
		return matchFirst(c.transport, fold(raw), c.tables.Transport.Fallback)
	case domain.DimPort:
		return matchFirst(c.port, fold(raw), c.tables.Port.Fallback)
	case domain.DimOrigin:
		return matchFirst(c.origin, fold(raw), c.tables.Origin.Fallback)
	case domain.DimCommodity:
		return matchExact(c.tables.Commodity, hsPrefix(raw))
	case domain.DimIncoterm:
		return matchExact(c.tables.Incoterm, strings.TrimSpace(raw))
	case domain.DimRegime:
		return matchExact(c.tables.Regime, strings.TrimSpace(raw))
	}
	return ""
}

// ClassifyPort labels the pair of customs offices on a declaration.
func (c *Classifier) ClassifyPort(dispatch, entry string) string {
	return c.Classify(domain.DimPort, dispatch+" "+entry)
}

// ClassifyRecord labels every dimension of r.
func (c *Classifier) ClassifyRecord(r domain.ImportRecord) map[domain.Dimension]string {
	return map[domain.Dimension]string{
		domain.DimRegime:    c.Classify(domain.DimRegime, r.RegimeCode()),
		domain.DimTransport: c.Classify(domain.DimTransport, r.Transport),
		domain.DimPort:      c.ClassifyPort(r.DispatchCustoms, r.EntryCustoms),
		domain.DimCommodity: c.Classify(domain.DimCommodity, r.HSCode),
		domain.DimOrigin:    c.Classify(domain.DimOrigin, r.OriginCountry),
		domain.DimIncoterm:  c.Classify(domain.DimIncoterm, r.Incoterm),
	}
}

func matchFirst(rules []foldedRule, s, fallback string) string {
	if s == "" {
		return fallback
	}
	for _, r := range rules {
		for _, tok := range r.tokens {
			if tok != "" && strings.Contains(s, tok) {
				return r.label
			}
		}
	}
	return fallback
}

func matchExact(t ExactTable, s string) string {
	if s == "" {
		return t.Fallback
	}
	for _, l := range t.Labels {
		if l == s {
			return l
		}
	}
	return t.Fallback
}

// hsPrefix returns the two-character HS chapter, or "" for shorter codes.
func hsPrefix(code string) string {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) < 2 {
		return ""
	}
	r1, n1 := utf8.DecodeRuneInString(code)
	r2, _ := utf8.DecodeRuneInString(code[n1:])
	return string([]rune{r1, r2})
}

func foldRules(m MatchTable) []foldedRule {
	out := make([]foldedRule, 0, len(m.Rules))
	for _, r := range m.Rules {
		fr := foldedRule{label: r.Label}
		for _, tok := range r.Tokens {
			fr.tokens = append(fr.tokens, fold(tok))
		}
		out = append(out, fr)
	}
	return out
}

// fold strips combining marks and upper-cases s so "Aéreo" and "AEREO"
// compare equal. Transformers and casers are stateful, so both are built
// per call.
func fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Upper(language.Und).String(stripped)
}
