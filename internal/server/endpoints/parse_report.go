package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/api"
	"github.com/labsight/labsight/internal/fetch"
	"github.com/labsight/labsight/internal/pipeline"
	"github.com/labsight/labsight/internal/svcctx"
)

// ParseReportRequest is the request body for POST /parse-report.
type ParseReportRequest struct {
	PDFURL     string   `json:"pdfUrl"`
	Biomarkers []string `json:"biomarkers"`
}

// ParseReportEndpoint handles POST /parse-report.
type ParseReportEndpoint struct{}

func (e *ParseReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/parse-report", e.handler
}

func (e *ParseReportEndpoint) RequiresProvider() bool { return true }

func (e *ParseReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ParseReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	if req.PDFURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pdfUrl is required")
		return
	}

	runner := svcctx.PipelineFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not initialized")
		return
	}

	result, err := runner.Run(r.Context(), &pipeline.Request{
		Task:     pipeline.TaskBiomarkers,
		Source:   fetch.Source{URL: req.PDFURL},
		Entities: req.Biomarkers,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ParseReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var pdfURL string

	cmd := &cobra.Command{
		Use:   "parse-report [biomarkers...]",
		Short: "Extract biomarkers from a lab report PDF",
		Long: `Extract biomarker values from a blood test report.

The report is fetched from --url, rendered page by page, and read with a
vision model. Biomarker names given as arguments are reconciled against
what the report contains; with no arguments every biomarker found is
returned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp pipeline.Result
			req := ParseReportRequest{PDFURL: pdfURL, Biomarkers: args}
			if err := client.Post(cmd.Context(), "/parse-report", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&pdfURL, "url", "", "URL of the lab report PDF (required)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// writePipelineError maps terminal pipeline failures onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		writeError(w, http.StatusInternalServerError, pipeline.KindInternal, err.Error())
		return
	}
	writeError(w, statusForKind(perr.Kind), perr.Kind, perr.Message)
}

func statusForKind(kind string) int {
	switch kind {
	case pipeline.KindDocumentTooLarge, pipeline.KindUnsupportedMimeType, pipeline.KindNotALabReport:
		return http.StatusBadRequest
	case pipeline.KindUnreachableSource:
		return http.StatusBadGateway
	case pipeline.KindRenderFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
