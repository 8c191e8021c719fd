package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/plan"
	"github.com/labsight/labsight/internal/svcctx"
)

// InterventionsResponse wraps generated intervention suggestions.
type InterventionsResponse struct {
	Status      string   `json:"status"`
	Suggestions []string `json:"suggestions"`
}

// InterventionsEndpoint handles POST /generate-interventions.
type InterventionsEndpoint struct{}

func (e *InterventionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/generate-interventions", e.handler
}

func (e *InterventionsEndpoint) RequiresProvider() bool { return true }

func (e *InterventionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var profile plan.InterventionProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	if profile.MemoryContext == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "memoryContext is required")
		return
	}

	planner := svcctx.PlannerFrom(r.Context())
	if planner == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "planner not initialized")
		return
	}

	suggestions, err := planner.Interventions(r.Context(), profile)
	if err != nil {
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, InterventionsResponse{Status: "success", Suggestions: suggestions})
}

func (e *InterventionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var profileFile string

	cmd := &cobra.Command{
		Use:   "generate-interventions",
		Short: "Suggest health interventions from a user's health context",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := readProfile[plan.InterventionProfile](profileFile)
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp InterventionsResponse
			if err := client.Post(cmd.Context(), "/generate-interventions", profile, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&profileFile, "profile", "", "path to a JSON health context profile (required)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
