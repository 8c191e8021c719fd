package reconcile

import (
	"strings"
	"testing"

	"github.com/labsight/labsight/internal/parse"
)

func f(v float64) *float64 { return &v }

func testAliases() *AliasTable {
	return NewAliasTable(map[string][]string{
		"Vitamin D":  {"Vit D", "25-OH Vitamin D", "Vitamin D3"},
		"Hemoglobin": {"Hb", "Hgb"},
		"TSH":        {"Thyroid Stimulating Hormone"},
	})
}

func TestReconcile_RequestShape(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "Hemoglobin", Value: f(13.2), Unit: "g/dL", Page: 0},
	}
	requested := []string{"Hemoglobin", "TSH", "Ferritin"}

	result := Reconcile(candidates, requested, testAliases())

	if len(result.Entities) != len(requested) {
		t.Fatalf("expected %d entities, got %d", len(requested), len(result.Entities))
	}

	// Order follows the request, found or not.
	wantNames := []string{"Hemoglobin", "TSH", "Ferritin"}
	for i, e := range result.Entities {
		if e.Name != wantNames[i] {
			t.Errorf("entity %d: expected %q, got %q", i, wantNames[i], e.Name)
		}
	}

	if !result.Entities[0].Matched {
		t.Error("hemoglobin should be matched")
	}
	for _, e := range result.Entities[1:] {
		if e.Matched {
			t.Errorf("%s should be unmatched", e.Name)
		}
		if e.SourcePage != -1 {
			t.Errorf("%s: unmatched entity should have SourcePage -1, got %d", e.Name, e.SourcePage)
		}
	}
}

func TestReconcile_AliasMatch(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "Hgb", Value: f(14.1), Page: 0},
	}
	result := Reconcile(candidates, []string{"Hemoglobin"}, testAliases())

	e := result.Entities[0]
	if !e.Matched {
		t.Fatal("expected a match via alias")
	}
	if e.Name != "Hemoglobin" {
		t.Errorf("expected canonical name, got %q", e.Name)
	}
	if e.Confidence != ConfidenceAlias {
		t.Errorf("expected alias confidence, got %q", e.Confidence)
	}
}

func TestReconcile_ExactBeatsAlias(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "vitamin d", Value: f(32), Page: 0},
	}
	result := Reconcile(candidates, []string{"Vitamin D"}, testAliases())

	e := result.Entities[0]
	if e.Confidence != ConfidenceExact {
		t.Errorf("case-insensitive name equality should be exact, got %q", e.Confidence)
	}
}

func TestReconcile_FuzzyMatch(t *testing.T) {
	// Not in the alias table; differs only in punctuation.
	candidates := []parse.Candidate{
		{RawName: "hs CRP", Value: f(1.1), Page: 0},
	}
	result := Reconcile(candidates, []string{"hs-CRP"}, testAliases())

	e := result.Entities[0]
	if !e.Matched {
		t.Fatal("expected fuzzy match")
	}
	if e.Confidence != ConfidenceFuzzy {
		t.Errorf("expected fuzzy confidence, got %q", e.Confidence)
	}
}

func TestReconcile_LatestPageWins(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "Vitamin D", Value: f(25), Page: 2},
		{RawName: "Vit D", Value: f(20), Page: 0},
	}
	result := Reconcile(candidates, []string{"Vitamin D"}, testAliases())

	e := result.Entities[0]
	if !e.Matched {
		t.Fatal("expected a match")
	}
	if e.Value == nil || *e.Value != 25 {
		t.Errorf("expected latest page value 25, got %+v", e.Value)
	}
	if e.SourcePage != 2 {
		t.Errorf("expected source page 2, got %d", e.SourcePage)
	}
	// Duplicates of the same canonical name are not extras.
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestReconcile_ExtrasReported(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "Hemoglobin", Value: f(13), Page: 0},
		{RawName: "Ferritin", Value: f(80), Page: 0},
		{RawName: "Glucose", Value: f(95), Page: 1},
	}
	result := Reconcile(candidates, []string{"Hemoglobin"}, testAliases())

	if len(result.Entities) != 1 {
		t.Fatalf("expected only requested entities, got %d", len(result.Entities))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a single extras warning, got %v", result.Warnings)
	}
	w := result.Warnings[0]
	if !strings.Contains(w, "Ferritin") || !strings.Contains(w, "Glucose") {
		t.Errorf("extras warning missing names: %s", w)
	}
	if strings.Contains(w, "Hemoglobin") {
		t.Errorf("consumed entity should not be an extra: %s", w)
	}
}

func TestReconcile_EmptyRequestReturnsAll(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "Glucose", Value: f(95), Page: 1},
		{RawName: "Hb", Value: f(13), Page: 0},
	}
	result := Reconcile(candidates, nil, testAliases())

	if len(result.Entities) != 2 {
		t.Fatalf("expected all entities, got %d", len(result.Entities))
	}
	// Sorted by name; Hb resolves to canonical Hemoglobin.
	if result.Entities[0].Name != "Glucose" || result.Entities[1].Name != "Hemoglobin" {
		t.Errorf("unexpected order: %q, %q", result.Entities[0].Name, result.Entities[1].Name)
	}
	for _, e := range result.Entities {
		if !e.Matched {
			t.Errorf("%s: entities in full-extraction mode should be matched", e.Name)
		}
	}
}

func TestReconcile_NoCandidates(t *testing.T) {
	result := Reconcile(nil, []string{"TSH", "Vitamin D"}, testAliases())

	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(result.Entities))
	}
	for _, e := range result.Entities {
		if e.Matched || e.SourcePage != -1 {
			t.Errorf("expected unmatched placeholder, got %+v", e)
		}
	}
}

func TestReconcile_ReferenceRangeCarried(t *testing.T) {
	candidates := []parse.Candidate{
		{RawName: "TSH", Value: f(2.5), Unit: "mIU/L", RefLow: f(0.4), RefHigh: f(4.0), Flag: parse.FlagWithin, Page: 0},
	}
	result := Reconcile(candidates, []string{"TSH"}, testAliases())

	e := result.Entities[0]
	if e.ReferenceRange == nil || *e.ReferenceRange.Low != 0.4 || *e.ReferenceRange.High != 4.0 {
		t.Errorf("reference range not carried: %+v", e.ReferenceRange)
	}
	if e.Flag != string(parse.FlagWithin) {
		t.Errorf("flag not carried: %q", e.Flag)
	}
	if e.Unit != "mIU/L" {
		t.Errorf("unit not carried: %q", e.Unit)
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("  Vitamin   D ") != "vitamin d" {
		t.Errorf("unexpected normalization: %q", Normalize("  Vitamin   D "))
	}
}

func TestAliasTable_Resolve(t *testing.T) {
	table := testAliases()

	t.Run("resolves alias to canonical", func(t *testing.T) {
		canon, via := table.Resolve("vit d")
		if canon != "Vitamin D" || !via {
			t.Errorf("got %q via=%v", canon, via)
		}
	})

	t.Run("canonical resolves to itself", func(t *testing.T) {
		canon, via := table.Resolve("Vitamin D")
		if canon != "Vitamin D" || via {
			t.Errorf("got %q via=%v", canon, via)
		}
	})

	t.Run("unknown name passes through", func(t *testing.T) {
		canon, via := table.Resolve("Lipase")
		if canon != "Lipase" || via {
			t.Errorf("got %q via=%v", canon, via)
		}
	})

	t.Run("nil table passes everything through", func(t *testing.T) {
		var nilTable *AliasTable
		canon, via := nilTable.Resolve("Hb")
		if canon != "Hb" || via {
			t.Errorf("got %q via=%v", canon, via)
		}
	})
}
