package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/plan"
	"github.com/labsight/labsight/internal/svcctx"
)

// PlanResponse wraps a generated plan.
type PlanResponse struct {
	Status string          `json:"status"`
	Plan   json.RawMessage `json:"plan"`
}

// WorkoutEndpoint handles POST /generate-workout.
type WorkoutEndpoint struct{}

func (e *WorkoutEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/generate-workout", e.handler
}

func (e *WorkoutEndpoint) RequiresProvider() bool { return true }

func (e *WorkoutEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var profile plan.WorkoutProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	if profile.FitnessLevel == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "fitnessLevel is required")
		return
	}
	if profile.TimeAvailable <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "timeAvailable must be positive")
		return
	}

	planner := svcctx.PlannerFrom(r.Context())
	if planner == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "planner not initialized")
		return
	}

	generated, err := planner.Workout(r.Context(), profile)
	if err != nil {
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{Status: "success", Plan: generated})
}

func (e *WorkoutEndpoint) Command(getServerURL func() string) *cobra.Command {
	var profileFile string

	cmd := &cobra.Command{
		Use:   "generate-workout",
		Short: "Generate a personalized workout plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := readProfile[plan.WorkoutProfile](profileFile)
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp PlanResponse
			if err := client.Post(cmd.Context(), "/generate-workout", profile, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&profileFile, "profile", "", "path to a JSON user profile (required)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
