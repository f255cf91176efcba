// Package extract pulls per-lift status codes out of a parsed lift
// report page. The resort has reshuffled the report markup more than
// once, so extraction is expressed as an ordered list of strategies
// and the first one that finds any rows wins.
package extract

import (
	"regexp"
	"strings"

	"liftwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// StatusMap maps a lift name to its status token ("open", "closed",
// "hold", "scheduled", ...). The vocabulary is whatever the source
// publishes; it is not validated here.
type StatusMap map[string]string

// Strategy extracts a StatusMap from a document. An empty map means
// "no rows found", which is a valid result, not an error.
type Strategy interface {
	Extract(doc *goquery.Document) StatusMap
}

// First runs each strategy in order and returns the first non-empty
// result, so one pass handles every markup revision we know about.
func First(doc *goquery.Document, strategies ...Strategy) StatusMap {
	for _, s := range strategies {
		if m := s.Extract(doc); len(m) > 0 {
			return m
		}
	}
	return StatusMap{}
}

// Rule describes how to pull one field out of a row: a relative
// selector, an optional attribute to read instead of the text content,
// and an optional pattern whose first capture group is the value
// (e.g. the status token embedded in an icon URL).
type Rule struct {
	Path    string `json:"path"`
	Attr    string `json:"attr"`
	Pattern string `json:"pattern"`
}

// RuleSet locates rows with a fixed selector and applies the same
// field rules to every row.
type RuleSet struct {
	Rows   string `json:"rows"`
	Name   Rule   `json:"name"`
	Status Rule   `json:"status"`
}

// Rules is the fixed-selector extraction strategy.
type Rules struct {
	set       RuleSet
	namePat   *regexp.Regexp
	statusPat *regexp.Regexp
}

func NewRules(set RuleSet) (*Rules, error) {
	r := &Rules{set: set}
	var err error
	if set.Name.Pattern != "" {
		r.namePat, err = regexp.Compile(set.Name.Pattern)
		if err != nil {
			return nil, err
		}
	}
	if set.Status.Pattern != "" {
		r.statusPat, err = regexp.Compile(set.Status.Pattern)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Rules) Extract(doc *goquery.Document) StatusMap {
	out := StatusMap{}
	doc.Find(r.set.Rows).Each(func(_ int, row *goquery.Selection) {
		name, ok := fieldValue(row, r.set.Name, r.namePat)
		if !ok {
			return
		}
		status, ok := fieldValue(row, r.set.Status, r.statusPat)
		if !ok {
			return
		}
		out[name] = status
	})
	return out
}

// fieldValue resolves one Rule against a row. A missing element, a
// missing attribute, or a pattern miss all report !ok so the caller
// drops the row instead of aborting the extraction.
func fieldValue(row *goquery.Selection, rule Rule, pat *regexp.Regexp) (string, bool) {
	sel := row
	if rule.Path != "" {
		sel = row.Find(rule.Path)
	}
	if len(sel.Nodes) == 0 {
		return "", false
	}

	var raw string
	if rule.Attr != "" {
		raw = htmlutil.GetAttr(sel.Nodes[0], rule.Attr)
	} else {
		raw = htmlutil.CleanText(sel.Nodes[0])
	}

	if pat != nil {
		groups := pat.FindStringSubmatch(raw)
		if len(groups) < 2 {
			return "", false
		}
		raw = groups[1]
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
