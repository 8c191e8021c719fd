package endpoints

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/fetch"
	"github.com/labsight/labsight/internal/pipeline"
	"github.com/labsight/labsight/internal/svcctx"
)

// AnalyzeFoodRequest is the request body for POST /analyze-food.
// Exactly one of ImageURL or ImageBase64 must be set.
type AnalyzeFoodRequest struct {
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Cuisine     string `json:"cuisine,omitempty"`
}

// AnalyzeFoodEndpoint handles POST /analyze-food.
type AnalyzeFoodEndpoint struct{}

func (e *AnalyzeFoodEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/analyze-food", e.handler
}

func (e *AnalyzeFoodEndpoint) RequiresProvider() bool { return true }

func (e *AnalyzeFoodEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	if (req.ImageURL == "") == (req.ImageBase64 == "") {
		writeError(w, http.StatusBadRequest, "invalid_request", "exactly one of imageUrl or imageBase64 is required")
		return
	}

	src := fetch.Source{URL: req.ImageURL, MimeType: req.MimeType}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "imageBase64 is not valid base64: "+err.Error())
			return
		}
		src.Data = data
	}

	runner := svcctx.PipelineFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not initialized")
		return
	}

	result, err := runner.Run(r.Context(), &pipeline.Request{
		Task:    pipeline.TaskFood,
		Source:  src,
		Cuisine: req.Cuisine,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeFoodEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		imageURL  string
		imageFile string
		cuisine   string
	)

	cmd := &cobra.Command{
		Use:   "analyze-food",
		Short: "Analyze the nutrition of a food photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := AnalyzeFoodRequest{ImageURL: imageURL, Cuisine: cuisine}
			if imageFile != "" {
				data, err := os.ReadFile(imageFile)
				if err != nil {
					return err
				}
				req.ImageBase64 = base64.StdEncoding.EncodeToString(data)
			}

			client := api.NewClient(getServerURL())
			var resp pipeline.Result
			if err := client.Post(cmd.Context(), "/analyze-food", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&imageURL, "url", "", "URL of the food image")
	cmd.Flags().StringVar(&imageFile, "file", "", "path to a local food image")
	cmd.Flags().StringVar(&cuisine, "cuisine", "", "cuisine hint (e.g. Indian, Italian)")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	cmd.MarkFlagsOneRequired("url", "file")

	return cmd
}
