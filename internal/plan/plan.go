// Package plan generates personalized workout and meal plans with a
// chat model. Plans are free-form JSON shaped by the instruction
// templates; this layer only guarantees the output is valid JSON.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/labsight/labsight/internal/parse"
	"github.com/labsight/labsight/internal/prompts"
	"github.com/labsight/labsight/internal/providers"
)

// WorkoutProfile describes the user a workout is generated for.
type WorkoutProfile struct {
	FitnessLevel  string   `json:"fitnessLevel"`
	Equipment     []string `json:"equipment"`
	TimeAvailable int      `json:"timeAvailable"` // minutes
	Injuries      []string `json:"injuries"`
	Motivation    string   `json:"motivationLevel,omitempty"`
	Timing        string   `json:"workoutTiming,omitempty"`
	Barriers      []string `json:"goalBarriers,omitempty"`
	Age           int      `json:"age,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	Weight        float64  `json:"weight,omitempty"` // kg
	CyclePhase    string   `json:"cyclePhase,omitempty"`
}

// NutritionProfile describes the user a meal plan is generated for.
type NutritionProfile struct {
	Age       int      `json:"age,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Weight    float64  `json:"weight,omitempty"` // kg
	Height    float64  `json:"height,omitempty"` // cm
	Goals     string   `json:"goals,omitempty"`
	DietType  string   `json:"dietType,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
	Cuisine   string   `json:"cuisine,omitempty"`
}

// InterventionProfile carries the health context interventions are
// suggested from. MemoryContext is a structured text block built by the
// calling system.
type InterventionProfile struct {
	MemoryContext string `json:"memoryContext"`
	Age           int    `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`
}

// Planner turns profiles into generated plans.
type Planner struct {
	client providers.VisionClient
	logger *slog.Logger
}

// New creates a Planner.
func New(client providers.VisionClient, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, logger: logger}
}

// Workout generates a workout plan for the profile.
func (p *Planner) Workout(ctx context.Context, profile WorkoutProfile) (json.RawMessage, error) {
	reqID := uuid.New().String()
	p.logger.Info("generating workout plan", "request_id", reqID,
		"level", profile.FitnessLevel, "minutes", profile.TimeAvailable)

	resp, err := p.client.Chat(ctx, &providers.ChatRequest{
		System:      prompts.WorkoutSystem(),
		Prompt:      "Create a workout for this user:\n" + workoutDescription(profile),
		Temperature: 0.7,
		JSONOnly:    true,
		RequestID:   reqID,
	})
	if err != nil {
		return nil, fmt.Errorf("generating workout: %w", err)
	}
	return recoverPlan(resp.Content)
}

// MealPlan generates a daily meal plan for the profile.
func (p *Planner) MealPlan(ctx context.Context, profile NutritionProfile) (json.RawMessage, error) {
	reqID := uuid.New().String()
	p.logger.Info("generating meal plan", "request_id", reqID, "cuisine", profile.Cuisine)

	instruction, err := prompts.MealPlan(profile.Cuisine, nutritionDescription(profile))
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Chat(ctx, &providers.ChatRequest{
		Prompt:      instruction,
		Temperature: 0.7,
		JSONOnly:    true,
		RequestID:   reqID,
	})
	if err != nil {
		return nil, fmt.Errorf("generating meal plan: %w", err)
	}
	return recoverPlan(resp.Content)
}

// Interventions suggests 3 to 5 actionable health interventions from
// the profile's memory context.
func (p *Planner) Interventions(ctx context.Context, profile InterventionProfile) ([]string, error) {
	reqID := uuid.New().String()
	p.logger.Info("generating interventions", "request_id", reqID)

	instruction, err := prompts.Interventions(profile.MemoryContext, interventionDescription(profile))
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Chat(ctx, &providers.ChatRequest{
		Prompt:      instruction,
		Temperature: 0.7,
		JSONOnly:    true,
		RequestID:   reqID,
	})
	if err != nil {
		return nil, fmt.Errorf("generating interventions: %w", err)
	}

	raw, err := recoverPlan(resp.Content)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("model produced no valid suggestions: %w", err)
	}
	if len(payload.Suggestions) == 0 {
		return nil, errors.New("model produced no suggestions")
	}
	return payload.Suggestions, nil
}

func recoverPlan(content string) (json.RawMessage, error) {
	raw, err := parse.RecoverJSON(content)
	if err != nil {
		return nil, fmt.Errorf("model produced no valid plan JSON: %w", err)
	}
	return raw, nil
}

// workoutDescription builds the profile block fed to the model, one
// attribute per line, omitting anything unset.
func workoutDescription(p WorkoutProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fitness Level: %s\n", p.FitnessLevel)
	fmt.Fprintf(&b, "Time Available: %d minutes\n", p.TimeAvailable)
	if len(p.Equipment) > 0 {
		fmt.Fprintf(&b, "Equipment: %s\n", strings.Join(p.Equipment, ", "))
	} else {
		b.WriteString("Equipment: None (Bodyweight only)\n")
	}
	if len(p.Injuries) > 0 {
		fmt.Fprintf(&b, "Injuries/Limitations: %s\n", strings.Join(p.Injuries, ", "))
	}
	if p.Motivation != "" {
		fmt.Fprintf(&b, "Motivation Level: %s\n", p.Motivation)
	}
	if p.Timing != "" {
		fmt.Fprintf(&b, "Preferred Workout Time: %s\n", p.Timing)
	}
	if len(p.Barriers) > 0 {
		fmt.Fprintf(&b, "Barriers/Challenges: %s\n", strings.Join(p.Barriers, ", "))
	}
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
	}
	if p.Weight > 0 {
		fmt.Fprintf(&b, "Weight: %gkg\n", p.Weight)
	}
	if p.CyclePhase != "" && strings.EqualFold(p.Gender, "female") {
		fmt.Fprintf(&b, "Menstrual Cycle Phase: %s\n", p.CyclePhase)
	}
	return b.String()
}

func interventionDescription(p InterventionProfile) string {
	var b strings.Builder
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
	}
	return b.String()
}

func nutritionDescription(p NutritionProfile) string {
	var b strings.Builder
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
	}
	if p.Weight > 0 {
		fmt.Fprintf(&b, "Weight: %gkg\n", p.Weight)
	}
	if p.Height > 0 {
		fmt.Fprintf(&b, "Height: %gcm\n", p.Height)
	}
	if p.Goals != "" {
		fmt.Fprintf(&b, "Goals: %s\n", p.Goals)
	}
	if p.DietType != "" {
		fmt.Fprintf(&b, "Diet Type: %s\n", p.DietType)
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies/Restrictions: %s\n", strings.Join(p.Allergies, ", "))
	}
	if b.Len() == 0 {
		b.WriteString("No specific profile provided; assume a healthy adult.\n")
	}
	return b.String()
}
