// Package reconcile matches parsed candidate entries against a caller's
// requested biomarker list. The output shape is guaranteed regardless of
// how the model behaved: a non-empty request always yields exactly one
// entity per requested name, in request order.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labsight/labsight/internal/parse"
)

// Confidence ranks how a candidate matched a requested name.
// Derived from the match path, never model-reported.
type Confidence string

const (
	ConfidenceExact Confidence = "exact-name-match"
	ConfidenceAlias Confidence = "alias-match"
	ConfidenceFuzzy Confidence = "fuzzy-match"
)

// Range is a reference interval with optional bounds.
type Range struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// Entity is the reconciled unit returned to callers.
type Entity struct {
	Name           string     `json:"name"`
	Value          *float64   `json:"value"`
	TextValue      string     `json:"textValue,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	ReferenceRange *Range     `json:"referenceRange,omitempty"`
	Flag           string     `json:"flag,omitempty"`
	Matched        bool       `json:"matched"`
	Confidence     Confidence `json:"confidence,omitempty"`
	SourcePage     int        `json:"sourcePage"` // -1 when not found
}

// Result is the reconciler output.
type Result struct {
	Entities []Entity
	Warnings []string
}

// chosen tracks the winning candidate for a canonical name.
type chosen struct {
	cand     parse.Candidate
	canon    string // canonical display name
	viaAlias bool   // raw name resolved through the alias table
}

// Reconcile resolves candidates against the requested list.
// Duplicates of the same canonical name keep the entry from the latest
// page (ties within a page resolve to the last occurrence), which is
// deterministic by page order. When requested is empty, every resolved
// entity is returned, sorted by name.
func Reconcile(candidates []parse.Candidate, requested []string, aliases *AliasTable) Result {
	ordered := make([]parse.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Page < ordered[j].Page })

	best := make(map[string]chosen)   // Normalize(canonical) -> winner
	loose := make(map[string]string)  // normalizeLoose(canonical) -> Normalize(canonical)
	var keyOrder []string             // first-seen order of canonical keys

	for _, c := range ordered {
		canon, viaAlias := aliases.Resolve(c.RawName)
		key := Normalize(canon)
		if _, exists := best[key]; !exists {
			keyOrder = append(keyOrder, key)
			loose[normalizeLoose(canon)] = key
		}
		// Later pages (and later entries within a page) overwrite.
		best[key] = chosen{cand: c, canon: canon, viaAlias: viaAlias}
	}

	if len(requested) == 0 {
		return reconcileAll(best, keyOrder)
	}

	result := Result{Entities: make([]Entity, 0, len(requested))}
	consumed := make(map[string]bool, len(requested))

	for _, name := range requested {
		canonReq, _ := aliases.Resolve(name)
		key := Normalize(canonReq)

		match, ok := best[key]
		confidence := ConfidenceExact
		if !ok {
			// Fuzzy pass: compare with punctuation stripped.
			if lk, found := loose[normalizeLoose(canonReq)]; found {
				match, ok = best[lk]
				key = lk
				confidence = ConfidenceFuzzy
			}
		}
		if !ok {
			result.Entities = append(result.Entities, Entity{
				Name:       canonReq,
				Matched:    false,
				SourcePage: -1,
			})
			continue
		}
		consumed[key] = true

		if confidence != ConfidenceFuzzy {
			switch {
			case Normalize(match.cand.RawName) == Normalize(name):
				confidence = ConfidenceExact
			case match.viaAlias:
				confidence = ConfidenceAlias
			default:
				// The request itself resolved through the alias table.
				confidence = ConfidenceAlias
			}
		}

		result.Entities = append(result.Entities, entityFrom(match, canonReq, true, confidence))
	}

	// Entities found but not requested are reported, not returned.
	var extras []string
	for _, key := range keyOrder {
		if !consumed[key] {
			extras = append(extras, best[key].canon)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("extra entities found: %s", strings.Join(extras, ", ")))
	}

	return result
}

// reconcileAll returns every resolved entity for an empty request.
func reconcileAll(best map[string]chosen, keyOrder []string) Result {
	result := Result{Entities: make([]Entity, 0, len(keyOrder))}
	for _, key := range keyOrder {
		match := best[key]
		result.Entities = append(result.Entities, entityFrom(match, match.canon, true, ""))
	}
	sort.SliceStable(result.Entities, func(i, j int) bool {
		return Normalize(result.Entities[i].Name) < Normalize(result.Entities[j].Name)
	})
	return result
}

func entityFrom(match chosen, name string, matched bool, confidence Confidence) Entity {
	e := Entity{
		Name:       name,
		Value:      match.cand.Value,
		TextValue:  match.cand.Text,
		Unit:       match.cand.Unit,
		Flag:       string(match.cand.Flag),
		Matched:    matched,
		Confidence: confidence,
		SourcePage: match.cand.Page,
	}
	if match.cand.RefLow != nil || match.cand.RefHigh != nil {
		e.ReferenceRange = &Range{Low: match.cand.RefLow, High: match.cand.RefHigh}
	}
	return e
}
