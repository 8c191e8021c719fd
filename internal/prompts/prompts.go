// Package prompts holds the fixed instruction templates sent to the
// vision model, one per task type.
package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

const biomarkerTemplate = `You are extracting laboratory results from images of a blood test report.

{{if .Biomarkers}}Extract ONLY these biomarkers:
{{range .Biomarkers}}- {{.}}
{{end}}{{else}}Extract EVERY biomarker result visible in the report.
{{end}}
STRICT RULES:
- Extract the EXACT value ONLY if explicitly written. Do NOT infer or calculate.
- Do NOT apply medical knowledge.
- Match biomarker names flexibly, but report the name as printed.
- Include the unit and the printed reference range when visible.
- "flag" may only be "below", "within" or "above", and only when a reference range is printed.
- If a biomarker is missing or unclear, omit it.

Return JSON ONLY, no markdown, matching:
{"entries":[{"name":"Hemoglobin","value":13.2,"unit":"g/dL","reference_range":{"low":12,"high":16},"flag":"within"}]}`

const classificationPrompt = `You are a medical document classifier.

Based ONLY on the document content, determine whether this is a BLOOD TEST REPORT.

Return JSON only:
{
  "isBloodReport": true | false,
  "confidence": "low" | "medium" | "high",
  "reason": "short explanation"
}`

const foodTemplate = `You are an expert nutritionist and food analyst.
Analyze the food in this image.{{if .Cuisine}} The user specified the cuisine/context as: {{.Cuisine}}.{{end}}

Identify the dish, estimate portion size, and report its nutritional values
as one entry per nutrient. Values are numeric; use the unit field for "g",
"kcal" etc. Include the dish itself as an entry named "food" with the dish
name in "value" as a string.

Return JSON ONLY, no markdown, matching:
{"entries":[{"name":"food","value":"Paneer Tikka"},{"name":"calories","value":320,"unit":"kcal"},{"name":"protein","value":18,"unit":"g"},{"name":"carbohydrates","value":9,"unit":"g"},{"name":"fats","value":24,"unit":"g"},{"name":"fiber","value":2,"unit":"g"}]}`

const workoutSystemPrompt = `You are an expert elite fitness coach. Create a highly personalized, semi-structured workout plan.

Output JSON ONLY with this structure:
{
  "title": "Creative Workout Name",
  "duration": "X Minutes",
  "focus": "Target Area or Goal",
  "warmup": [{"name": "Exercise", "duration": "Time/Reps"}],
  "exercises": [{"name": "Exercise", "sets": 3, "reps": "Range or Time", "notes": "Optional tip"}],
  "cooldown": [{"name": "Exercise", "duration": "Time"}]
}

RULES:
1. STRICTLY respect injuries. Do NOT include exercises that aggravate listed injuries.
2. Adapt volume/intensity based on age and cycle phase (e.g. luteal = lower intensity/steady state; follicular = HIIT/strength).
3. Use ONLY available equipment.
4. Factor in motivation: low = easy wins and shorter sets; high = push limits.
5. Factor in timing: morning = energizing, mobility-focused; evening = de-stressing, recovery/strength.
6. Address barriers: time constraints = supersets, minimal rest; boredom = variety; low energy = start slow.`

const mealPlanTemplate = `You are an expert nutritionist specializing in {{.Cuisine}} cuisine.
Create a daily meal plan for a user with the following profile:

{{.Profile}}
Provide breakfast, lunch, dinner and two snack options. Focus on healthy,
nutritious {{.Cuisine}} meals aligned with the user's goals, with
approximate calories and protein for each meal.

Return JSON ONLY with this structure:
{
  "breakfast": {"name": "...", "description": "...", "calories": 0, "protein": "0g"},
  "lunch": {"name": "...", "description": "...", "calories": 0, "protein": "0g"},
  "dinner": {"name": "...", "description": "...", "calories": 0, "protein": "0g"},
  "snacks": [{"name": "...", "description": "...", "calories": 0, "protein": "0g"}],
  "total_calories": 0,
  "total_protein": "0g"
}`

const interventionTemplate = `You are a preventative health coach.
Based on the user's health context below, suggest personalized, actionable health interventions.

{{if .Profile}}{{.Profile}}
{{end}}Health context:
{{.Context}}

Suggest between 3 and 5 interventions. Each suggestion is ONE short,
specific, actionable sentence grounded in the context above. Do NOT
diagnose conditions or recommend medication.

Return JSON ONLY with this structure:
{"suggestions": ["...", "...", "..."]}`

var (
	biomarkerTmpl    = template.Must(template.New("biomarkers").Parse(biomarkerTemplate))
	foodTmpl         = template.Must(template.New("food").Parse(foodTemplate))
	mealTmpl         = template.Must(template.New("meal").Parse(mealPlanTemplate))
	interventionTmpl = template.Must(template.New("interventions").Parse(interventionTemplate))
)

// BiomarkerExtraction renders the biomarker extraction instruction.
// An empty list means "extract everything found".
func BiomarkerExtraction(biomarkers []string) (string, error) {
	var b strings.Builder
	if err := biomarkerTmpl.Execute(&b, struct{ Biomarkers []string }{biomarkers}); err != nil {
		return "", fmt.Errorf("rendering biomarker template: %w", err)
	}
	return b.String(), nil
}

// Classification returns the report classification instruction.
func Classification() string { return classificationPrompt }

// FoodAnalysis renders the food nutrition instruction with an optional
// cuisine hint.
func FoodAnalysis(cuisine string) (string, error) {
	var b strings.Builder
	if err := foodTmpl.Execute(&b, struct{ Cuisine string }{strings.TrimSpace(cuisine)}); err != nil {
		return "", fmt.Errorf("rendering food template: %w", err)
	}
	return b.String(), nil
}

// WorkoutSystem returns the workout generation system prompt.
func WorkoutSystem() string { return workoutSystemPrompt }

// Interventions renders the intervention suggestion instruction.
// context is the structured health context built by the caller; profile
// holds optional user attribute lines.
func Interventions(context, profile string) (string, error) {
	var b strings.Builder
	err := interventionTmpl.Execute(&b, struct{ Context, Profile string }{
		strings.TrimSpace(context), strings.TrimSpace(profile),
	})
	if err != nil {
		return "", fmt.Errorf("rendering intervention template: %w", err)
	}
	return b.String(), nil
}

// MealPlan renders the meal plan instruction for a profile description.
func MealPlan(cuisine, profile string) (string, error) {
	if strings.TrimSpace(cuisine) == "" {
		cuisine = "General"
	}
	var b strings.Builder
	err := mealTmpl.Execute(&b, struct{ Cuisine, Profile string }{cuisine, profile})
	if err != nil {
		return "", fmt.Errorf("rendering meal plan template: %w", err)
	}
	return b.String(), nil
}
