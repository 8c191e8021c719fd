package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/plan"
	"github.com/labsight/labsight/internal/svcctx"
)

// NutritionEndpoint handles POST /generate-nutrition.
type NutritionEndpoint struct{}

func (e *NutritionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/generate-nutrition", e.handler
}

func (e *NutritionEndpoint) RequiresProvider() bool { return true }

func (e *NutritionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var profile plan.NutritionProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}

	planner := svcctx.PlannerFrom(r.Context())
	if planner == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "planner not initialized")
		return
	}

	generated, err := planner.MealPlan(r.Context(), profile)
	if err != nil {
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{Status: "success", Plan: generated})
}

func (e *NutritionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var profileFile string

	cmd := &cobra.Command{
		Use:   "generate-nutrition",
		Short: "Generate a personalized daily meal plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := readProfile[plan.NutritionProfile](profileFile)
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp PlanResponse
			if err := client.Post(cmd.Context(), "/generate-nutrition", profile, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&profileFile, "profile", "", "path to a JSON user profile (required)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

// readProfile loads a JSON profile file for the plan commands.
func readProfile[T any](path string) (T, error) {
	var profile T
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("reading profile: %w", err)
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parsing profile: %w", err)
	}
	return profile, nil
}
