package prompts

import (
	"strings"
	"testing"
)

func TestBiomarkerExtraction(t *testing.T) {
	t.Run("lists requested biomarkers", func(t *testing.T) {
		out, err := BiomarkerExtraction([]string{"Hemoglobin", "TSH"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "- Hemoglobin") || !strings.Contains(out, "- TSH") {
			t.Errorf("requested biomarkers missing:\n%s", out)
		}
		if strings.Contains(out, "EVERY biomarker") {
			t.Error("targeted extraction should not ask for everything")
		}
	})

	t.Run("empty list asks for everything", func(t *testing.T) {
		out, err := BiomarkerExtraction(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "EVERY biomarker") {
			t.Errorf("expected full-extraction instruction:\n%s", out)
		}
	})
}

func TestFoodAnalysis(t *testing.T) {
	t.Run("includes cuisine hint", func(t *testing.T) {
		out, err := FoodAnalysis("Italian")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Italian") {
			t.Errorf("cuisine hint missing:\n%s", out)
		}
	})

	t.Run("omits hint when empty", func(t *testing.T) {
		out, err := FoodAnalysis("  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "cuisine/context as:") {
			t.Errorf("unexpected cuisine hint:\n%s", out)
		}
	})
}

func TestInterventionsPrompt(t *testing.T) {
	t.Run("embeds context and profile", func(t *testing.T) {
		out, err := Interventions("Low ferritin. Trains 5x weekly.", "Age: 29\nGender: female\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Low ferritin") {
			t.Error("health context not embedded")
		}
		if !strings.Contains(out, "Age: 29") {
			t.Error("profile not embedded")
		}
		if !strings.Contains(out, "between 3 and 5") {
			t.Error("expected suggestion count bounds")
		}
	})

	t.Run("omits profile block when empty", func(t *testing.T) {
		out, err := Interventions("context", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "Age:") {
			t.Errorf("unexpected profile block:\n%s", out)
		}
	})
}

func TestMealPlanPrompt(t *testing.T) {
	out, err := MealPlan("", "Age: 30\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "General cuisine") {
		t.Error("expected General cuisine default")
	}
	if !strings.Contains(out, "Age: 30") {
		t.Error("profile not embedded")
	}
}
