package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
	"github.com/RyanBlaney/sonido-wavelet/store"
	"github.com/gin-gonic/gin"
)

// bindError classifies a request binding failure. Oversized bodies keep
// their own error so they map to 413.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", pipeline.ErrInvalidParameter, err)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	Store store.Store
}

func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/", h.root)
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Feature Extraction API", "status": "healthy"})
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_missing"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_unreachable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// AnalysisHandler serves uploads, processing, plots and batches
type AnalysisHandler struct {
	Pipeline *pipeline.Pipeline
	Logger   logging.Logger
}

func (h *AnalysisHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/wavelets", h.wavelets)
	api.POST("/upload", h.upload)
	api.POST("/upload-with-progress", h.upload)
	api.POST("/process", h.process)
	api.POST("/process-raw", h.processRaw)
	api.POST("/plots/batch", h.plots)
	api.POST("/plot/all", h.plots)
	api.POST("/plot/:group", h.plotGroup)
	api.POST("/batch/process", h.batch)
}

// analysisForm is the multipart form shared by the process and plot routes
type analysisForm struct {
	FileID       string `form:"file_id"`
	TimeColumn   *int   `form:"time_column" binding:"required"`
	SignalColumn *int   `form:"signal_column" binding:"required"`
	WaveletType  string `form:"wavelet_type"`
	Levels       *int   `form:"n_levels"`
}

func (f *analysisForm) wavelet() (pipeline.WaveletConfig, error) {
	if f.WaveletType == "" || f.Levels == nil {
		return pipeline.WaveletConfig{}, fmt.Errorf("%w: wavelet_type and n_levels are required", pipeline.ErrInvalidParameter)
	}
	return pipeline.WaveletConfig{Family: f.WaveletType, Levels: *f.Levels}, nil
}

// selection binds the form and resolves the file. An inline file is
// uploaded first so every path reads from the store.
func (h *AnalysisHandler) selection(c *gin.Context) (pipeline.Selection, *analysisForm, error) {
	var form analysisForm
	if err := c.ShouldBind(&form); err != nil {
		return pipeline.Selection{}, nil, bindError(err)
	}

	sel := pipeline.Selection{
		FileID:       form.FileID,
		TimeColumn:   *form.TimeColumn,
		SignalColumn: *form.SignalColumn,
	}
	if sel.FileID != "" {
		return sel, &form, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return sel, nil, fmt.Errorf("%w: either 'file' or 'file_id' must be provided", pipeline.ErrInvalidParameter)
		}
		return sel, nil, bindError(err)
	}
	content, err := readFormFile(fh)
	if err != nil {
		return sel, nil, bindError(err)
	}
	up, err := h.Pipeline.Upload(c.Request.Context(), fh.Filename, content)
	if err != nil {
		return sel, nil, err
	}
	sel.FileID = up.FileID
	return sel, &form, nil
}

func (h *AnalysisHandler) wavelets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"families":   wavelet.SupportedFamilies(),
		"min_levels": wavelet.MinLevels,
		"max_levels": wavelet.MaxLevels,
		"threshold":  h.Pipeline.Config().Threshold,
	})
}

func (h *AnalysisHandler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			err = fmt.Errorf("%w: file is required", pipeline.ErrInvalidParameter)
		} else {
			err = bindError(err)
		}
		respondError(c, h.Logger, err)
		return
	}
	content, err := readFormFile(fh)
	if err != nil {
		respondError(c, h.Logger, bindError(err))
		return
	}

	result, err := h.Pipeline.Upload(c.Request.Context(), fh.Filename, content)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) process(c *gin.Context) {
	sel, form, err := h.selection(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	wc, err := form.wavelet()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	result, err := h.Pipeline.ProcessOne(c.Request.Context(), sel, wc)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) processRaw(c *gin.Context) {
	sel, _, err := h.selection(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	result, err := h.Pipeline.ProcessRaw(c.Request.Context(), sel)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) plots(c *gin.Context) {
	h.renderPlots(c, pipeline.AllPlotGroups)
}

func (h *AnalysisHandler) plotGroup(c *gin.Context) {
	group, err := pipeline.ParsePlotGroup(c.Param("group"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.renderPlots(c, []pipeline.PlotGroup{group})
}

func (h *AnalysisHandler) renderPlots(c *gin.Context, groups []pipeline.PlotGroup) {
	sel, form, err := h.selection(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	wc, err := form.wavelet()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	result, err := h.Pipeline.GeneratePlots(c.Request.Context(), sel, wc, groups...)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Files       []pipeline.Selection `json:"files"`
	WaveletType string               `json:"wavelet_type"`
	Levels      int                  `json:"n_levels"`
	FailFast    bool                 `json:"fail_fast"`
}

type batchResponse struct {
	*pipeline.BatchResult
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

func (h *AnalysisHandler) batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, bindError(err))
		return
	}

	wc := pipeline.WaveletConfig{Family: req.WaveletType, Levels: req.Levels}
	result, err := h.Pipeline.ProcessBatch(c.Request.Context(), req.Files, wc, pipeline.BatchOptions{FailFast: req.FailFast})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, batchResponse{
		BatchResult: result,
		Processed:   result.Processed(),
		Failed:      result.Failed(),
	})
}

// ExportHandler turns statistics into CSV attachments
type ExportHandler struct {
	Logger logging.Logger
}

func (h *ExportHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/download-all-stats", h.downloadAll)
	api.POST("/download-stats", h.downloadOne)
}

func (h *ExportHandler) readRows(c *gin.Context) ([]pipeline.StatsRow, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, bindError(err)
	}
	return pipeline.ParseStatsRows(body)
}

func (h *ExportHandler) downloadAll(c *gin.Context) {
	rows, err := h.readRows(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.attach(c, "all_files_stats.csv", rows)
}

func (h *ExportHandler) downloadOne(c *gin.Context) {
	rows, err := h.readRows(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if len(rows) != 1 {
		respondError(c, h.Logger, fmt.Errorf("%w: expected one statistics object, got %d", pipeline.ErrInvalidParameter, len(rows)))
		return
	}
	h.attach(c, "statistics.csv", rows)
}

func (h *ExportHandler) attach(c *gin.Context, filename string, rows []pipeline.StatsRow) {
	var buf bytes.Buffer
	if err := pipeline.WriteStatsCSV(&buf, rows); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	h.Logger.WithContext(c.Request.Context()).Info("statistics exported", logging.Fields{
		"filename": filename,
		"rows":     len(rows),
	})
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
