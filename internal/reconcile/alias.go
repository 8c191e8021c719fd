package reconcile

import "strings"

// AliasTable maps raw biomarker names to canonical names. It is an
// injected lookup so the mapping can grow without touching
// reconciliation logic.
type AliasTable struct {
	byNormalized map[string]string // normalized alias -> canonical display name
}

// NewAliasTable builds a table from canonical name -> aliases.
// Canonical names map to themselves so lookups are uniform.
func NewAliasTable(aliases map[string][]string) *AliasTable {
	t := &AliasTable{byNormalized: make(map[string]string)}
	for canonical, list := range aliases {
		t.byNormalized[Normalize(canonical)] = canonical
		for _, alias := range list {
			t.byNormalized[Normalize(alias)] = canonical
		}
	}
	return t
}

// Resolve maps a raw name to its canonical form. Unresolved names pass
// through unchanged as their own canonical form.
func (t *AliasTable) Resolve(raw string) (canonical string, viaAlias bool) {
	if t != nil {
		if c, ok := t.byNormalized[Normalize(raw)]; ok {
			return c, !strings.EqualFold(collapseSpace(raw), c)
		}
	}
	return collapseSpace(raw), false
}

// Normalize lowercases a name and collapses internal whitespace so
// "  Vitamin   D " and "vitamin d" compare equal.
func Normalize(name string) string {
	return strings.ToLower(collapseSpace(name))
}

// normalizeLoose additionally strips non-alphanumerics, used as the
// last fuzzy comparison pass ("25-OH Vitamin D" vs "25 OH Vitamin D").
func normalizeLoose(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
