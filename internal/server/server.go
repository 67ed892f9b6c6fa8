package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"invoicemerge/internal/config"
	"invoicemerge/internal/pipeline"
	"invoicemerge/internal/storage"
	"invoicemerge/internal/util"
)

const uploadPage = `<!doctype html>
<html>
<head><title>Invoice Merge</title></head>
<body>
  <h1>Invoice to Excel converter</h1>
  <form action="/convert" method="post" enctype="multipart/form-data">
    <input type="file" name="pdf_files" multiple accept=".pdf,.html,.htm">
    <button type="submit">Convert</button>
  </form>
</body>
</html>`

type Server struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func New(db *storage.DB, cfg config.Config, log zerolog.Logger) *Server {
	return &Server{db: db, cfg: cfg, log: log}
}

// Router builds the HTTP surface: an upload form, the conversion endpoint that
// answers with the merged workbook, and batch inspection endpoints.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), noStore())

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uploadPage))
	})
	r.POST("/convert", s.handleConvert)
	r.GET("/batches", s.handleListBatches)
	r.GET("/batches/:id/download", s.handleDownloadBatch)

	return r
}

func (s *Server) Run() error {
	return s.Router().Run(fmt.Sprintf(":%d", s.cfg.ServerPort))
}

// Browsers must not cache conversion responses: the same URL returns a
// different workbook on every submission.
func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}

func (s *Server) handleConvert(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["pdf_files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files submitted"})
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload dir unavailable"})
		return
	}

	inputs := make([]pipeline.DocumentInput, 0, len(files))
	for _, fh := range files {
		name := util.SanitizeFilename(fh.Filename)
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".pdf") && !strings.HasSuffix(lower, ".html") && !strings.HasSuffix(lower, ".htm") {
			continue
		}
		dest := filepath.Join(s.cfg.UploadDir, name)
		if err := c.SaveUploadedFile(fh, dest); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save %s", name)})
			return
		}
		inputs = append(inputs, pipeline.DocumentInput{Filename: name, Path: dest})
	}
	if len(inputs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no supported documents submitted"})
		return
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	outputPath := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("invoices_merged_%d.xlsx", time.Now().UnixNano()))

	batch, err := processor.RunBatch(c.Request.Context(), "upload", inputs, outputPath)
	if errors.Is(err, pipeline.ErrEmptyBatch) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "batch": batch.ID})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("conversion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "conversion failed"})
		return
	}

	c.FileAttachment(batch.OutputPath, "invoices_merged.xlsx")
}

func (s *Server) handleListBatches(c *gin.Context) {
	batches, err := s.db.ListBatches(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (s *Server) handleDownloadBatch(c *gin.Context) {
	batch, err := s.db.GetBatch(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	if batch.OutputPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch has no output"})
		return
	}
	if _, err := os.Stat(batch.OutputPath); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "output file no longer available"})
		return
	}
	c.FileAttachment(batch.OutputPath, "invoices_merged.xlsx")
}
