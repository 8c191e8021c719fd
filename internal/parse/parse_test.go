package parse

import (
	"strings"
	"testing"
)

func TestEntries(t *testing.T) {
	t.Run("parses a clean payload", func(t *testing.T) {
		text := `{"entries":[
			{"name":"Hemoglobin","value":13.2,"unit":"g/dL","reference_range":{"low":12,"high":16},"flag":"within"},
			{"name":"TSH","value":"2.5","unit":"mIU/L"}
		]}`
		candidates, warnings, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("unexpected warnings: %v", warnings)
		}
		if len(candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(candidates))
		}

		hb := candidates[0]
		if hb.RawName != "Hemoglobin" || hb.Value == nil || *hb.Value != 13.2 {
			t.Errorf("unexpected hemoglobin candidate: %+v", hb)
		}
		if hb.RefLow == nil || *hb.RefLow != 12 || hb.RefHigh == nil || *hb.RefHigh != 16 {
			t.Errorf("unexpected reference range: %+v", hb)
		}
		if hb.Flag != FlagWithin {
			t.Errorf("expected within flag, got %q", hb.Flag)
		}

		// Numeric strings are coerced.
		tsh := candidates[1]
		if tsh.Value == nil || *tsh.Value != 2.5 {
			t.Errorf("expected string value coerced to 2.5, got %+v", tsh)
		}
	})

	t.Run("recovers JSON from a code fence", func(t *testing.T) {
		text := "```json\n{\"entries\":[{\"name\":\"Glucose\",\"value\":95}]}\n```"
		candidates, _, err := Entries(text, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candidates) != 1 || candidates[0].RawName != "Glucose" {
			t.Fatalf("unexpected candidates: %+v", candidates)
		}
		if candidates[0].Page != 1 {
			t.Errorf("expected page 1, got %d", candidates[0].Page)
		}
	})

	t.Run("drops entry with empty name", func(t *testing.T) {
		text := `{"entries":[{"name":"  ","value":1},{"name":"Ferritin","value":80}]}`
		candidates, warnings, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if len(warnings) != 1 || !strings.Contains(warnings[0], "empty name") {
			t.Errorf("expected empty-name warning, got %v", warnings)
		}
	})

	t.Run("drops entry with inverted reference range", func(t *testing.T) {
		text := `{"entries":[{"name":"Vitamin D","value":25,"reference_range":{"low":10,"high":5}}]}`
		candidates, warnings, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("expected entry dropped, got %+v", candidates)
		}
		if len(warnings) != 1 || !strings.Contains(warnings[0], "low 10 > high 5") {
			t.Errorf("expected range warning, got %v", warnings)
		}
	})

	t.Run("keeps textual values", func(t *testing.T) {
		text := `{"entries":[{"name":"HIV Screen","value":"Non-Reactive"}]}`
		candidates, _, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if candidates[0].Value != nil || candidates[0].Text != "Non-Reactive" {
			t.Errorf("expected textual value, got %+v", candidates[0])
		}
	})

	t.Run("strips thousands separators", func(t *testing.T) {
		text := `{"entries":[{"name":"Platelet Count","value":"250,000"}]}`
		candidates, _, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if candidates[0].Value == nil || *candidates[0].Value != 250000 {
			t.Errorf("expected 250000, got %+v", candidates[0])
		}
	})

	t.Run("warns on unrecognized flag", func(t *testing.T) {
		text := `{"entries":[{"name":"TSH","value":6,"reference_range":{"low":0.4,"high":4},"flag":"critical"}]}`
		candidates, warnings, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if candidates[0].Flag != "" {
			t.Errorf("expected flag cleared, got %q", candidates[0].Flag)
		}
		if len(warnings) != 1 || !strings.Contains(warnings[0], "unrecognized flag") {
			t.Errorf("expected flag warning, got %v", warnings)
		}
	})

	t.Run("clears flag without a reference range", func(t *testing.T) {
		text := `{"entries":[{"name":"Glucose","value":95,"flag":"within"}]}`
		candidates, warnings, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if candidates[0].Flag != "" {
			t.Errorf("expected flag cleared, got %q", candidates[0].Flag)
		}
		if len(warnings) != 0 {
			t.Errorf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("accepts flag synonyms", func(t *testing.T) {
		text := `{"entries":[
			{"name":"A","value":1,"reference_range":{"low":2,"high":3},"flag":"LOW"},
			{"name":"B","value":5,"reference_range":{"low":2,"high":3},"flag":"H"},
			{"name":"C","value":2.5,"reference_range":{"low":2,"high":3},"flag":"normal"}
		]}`
		candidates, _, err := Entries(text, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Flag{FlagBelow, FlagAbove, FlagWithin}
		for i, c := range candidates {
			if c.Flag != want[i] {
				t.Errorf("candidate %d: expected %q, got %q", i, want[i], c.Flag)
			}
		}
	})

	t.Run("fails on non-JSON text", func(t *testing.T) {
		_, _, err := Entries("I could not read this page.", 0)
		if err == nil {
			t.Fatal("expected error for non-JSON text")
		}
	})

	t.Run("fails on wrong shape", func(t *testing.T) {
		_, _, err := Entries(`{"results":[]}`, 0)
		if err == nil {
			t.Fatal("expected error for payload without entries")
		}
	})
}

func TestRecoverJSON(t *testing.T) {
	t.Run("passes through strict JSON", func(t *testing.T) {
		raw, err := RecoverJSON(`{"entries":[]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(raw) != `{"entries":[]}` {
			t.Errorf("unexpected output: %s", raw)
		}
	})

	t.Run("extracts object from surrounding prose", func(t *testing.T) {
		raw, err := RecoverJSON("Here is the result:\n{\"entries\": []}\nHope that helps!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(raw), "entries") {
			t.Errorf("unexpected output: %s", raw)
		}
	})

	t.Run("fails when nothing parseable exists", func(t *testing.T) {
		if _, err := RecoverJSON("no json here"); err == nil {
			t.Fatal("expected error")
		}
	})
}
