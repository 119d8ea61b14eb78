package analyses

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"datachat-backend/internal/llm"
	"datachat-backend/internal/shared/server/respond"
)

const maxUploadBytes = 25 << 20

// Handler exposes the three CSV processing phases plus record lookup.
type Handler struct {
	Svc *Service
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/csv/initiateUpload", h.initiateUpload)
	rg.POST("/csv/generateSummary", h.generateSummary)
	rg.POST("/csv/describeAndFinalize", h.describeAndFinalize)
	rg.GET("/analyses/:analysisId", h.get)
}

func (h *Handler) initiateUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("csvFile")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No CSV file uploaded.")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read uploaded file.")
		return
	}
	defer file.Close()

	rec, csvContent, err := h.Svc.InitiateUpload(c.Request.Context(), c.PostForm("analysisName"), fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "Server error during upload initiation.")
		return
	}

	respond.Created(c, gin.H{
		"success":           true,
		"analysisId":        rec.AnalysisID,
		"analysisName":      rec.AnalysisName,
		"originalFileName":  rec.OriginalFileName,
		"rawCsvStoragePath": rec.RawCSVStoragePath,
		"csvContent":        csvContent,
		"message":           "File uploaded and initial record created successfully. Proceed to generate summary.",
	})
}

type generateSummaryRequest struct {
	AnalysisID string `json:"analysisId"`
	CSVContent string `json:"csvContent"`
}

func (h *Handler) generateSummary(c *gin.Context) {
	var req generateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnalysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysisId is required.")
		return
	}

	rec, err := h.Svc.GenerateSummary(c.Request.Context(), req.AnalysisID, req.CSVContent)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis record for ID "+req.AnalysisID+" not found.")
		case errors.Is(err, ErrNoUsableData):
			respond.Error(c, http.StatusBadRequest, "no_usable_data",
				"CSV processing resulted in no usable data. The file might be empty or incorrectly formatted.")
		case errors.Is(err, ErrMissingRawPath):
			respond.Error(c, http.StatusBadRequest, "missing_raw_path",
				"rawCsvStoragePath not found for analysis ID "+req.AnalysisID+". Cannot proceed.")
		case llm.IsAIError(err):
			respond.Error(c, http.StatusInternalServerError, string(llm.KindOf(err)),
				"Failed to generate data summary with AI: "+err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "summary_failed",
				"Server error during summary generation.")
		}
		return
	}

	respond.OK(c, gin.H{
		"success":               true,
		"analysisId":            rec.AnalysisID,
		"dataSummaryForPrompts": rec.DataSummary,
		"message":               "Data summary generated and analysis record updated successfully. Proceed to describe and finalize.",
	})
}

type describeAndFinalizeRequest struct {
	AnalysisID  string          `json:"analysisId"`
	DataSummary json.RawMessage `json:"dataSummaryForPrompts"`
}

func (h *Handler) describeAndFinalize(c *gin.Context) {
	var req describeAndFinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnalysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields: analysisId or dataSummaryForPrompts.")
		return
	}

	rec, err := h.Svc.DescribeAndFinalize(c.Request.Context(), req.AnalysisID, req.DataSummary)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis record for ID "+req.AnalysisID+" not found.")
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error())
		case llm.IsAIError(err):
			respond.Error(c, http.StatusInternalServerError, string(llm.KindOf(err)),
				"Failed to generate data nature description with AI: "+err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "finalize_failed", "Server error during finalization.")
		}
		return
	}

	respond.OK(c, gin.H{
		"success":               true,
		"analysisId":            rec.AnalysisID,
		"analysisName":          rec.AnalysisName,
		"originalFileName":      rec.OriginalFileName,
		"dataNatureDescription": rec.DataNatureDescription,
		"message":               "Analysis created successfully and ready for topic analysis.",
	})
}

func (h *Handler) get(c *gin.Context) {
	rec, err := h.Svc.Get(c.Request.Context(), c.Param("analysisId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis record not found.")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "lookup_failed", "Server error while loading analysis.")
		return
	}
	respond.OK(c, gin.H{"success": true, "analysis": rec})
}
