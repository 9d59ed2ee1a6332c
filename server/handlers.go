package server

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	logalign "github.com/lucasjlepore/logalign"
	"github.com/lucasjlepore/logalign/pipeline"
)

// handleFormat formats one uploaded log.
// POST /api/v1/format
func (s *Server) handleFormat(c *gin.Context) {
	fh, err := c.FormFile("log")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"log\" is required"})
		return
	}

	format := c.DefaultQuery("format", s.cfg.Format)
	switch strings.ToLower(format) {
	case "", pipeline.FormatCSV, pipeline.FormatParquet, pipeline.FormatBoth:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format"})
		return
	}

	summary := false
	if v := c.Query("summary"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary parameter"})
			return
		}
		summary = parsed
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	res, err := pipeline.RunBytes(ctx, pipeline.BytesOptions{
		SourceFileName: filepath.Base(fh.Filename),
		LogData:        data,
		Label:          c.DefaultQuery("label", s.cfg.Label),
		Format:         format,
		Config:         s.align,
		Sink:           s.sink,
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if summary {
		c.JSON(http.StatusOK, gin.H{
			"data": res.Manifest,
			"meta": gin.H{"warnings": len(res.Warnings)},
		})
		return
	}

	zipBytes, err := zipArtifacts(res.Files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	c.Header("Content-Disposition", `attachment; filename="`+name+`_formatted.zip"`)
	c.Header("X-Run-ID", res.Manifest.RunID)
	c.Data(http.StatusOK, "application/zip", zipBytes)
}

// handleGetRun returns a stored run summary.
// GET /api/v1/runs/:id
func (s *Server) handleGetRun(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	run, err := s.runs.LoadRun(ctx, c.Param("id"))
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

// errorStatus maps per-file failures to 422 and everything else to 500.
func errorStatus(err error) int {
	for _, target := range []error{
		logalign.ErrSensorMissing,
		logalign.ErrTooFewSamples,
		logalign.ErrEmptyWindow,
		logalign.ErrInvalidConfig,
	} {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
