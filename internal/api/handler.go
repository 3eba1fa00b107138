// Package api exposes completed runs over HTTP: run listings, per-run
// point sets as GeoJSON and per-run profiles. It is read-only; runs are
// created by the pipeline binary, never through this surface.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
	"github.com/oguzhanerr/mst-gis-optimized/internal/pipeline"
	"github.com/oguzhanerr/mst-gis-optimized/internal/repository"
)

type Handler struct {
	runs   repository.RunRepository
	points repository.PointRepository
}

func NewHandler(runs repository.RunRepository, points repository.PointRepository) *Handler {
	return &Handler{
		runs:   runs,
		points: points,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/api/runs", h.getRuns)
	r.GET("/api/runs/:id/points", h.getRunPoints)
	r.GET("/api/runs/:id/profiles", h.getRunProfiles)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getRuns(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			limit = lim
		}
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch runs",
		})
		return
	}

	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{
			"id":             r.ID,
			"transmitter_id": r.Transmitter.ID,
			"created_at":     r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (h *Handler) getRunPoints(c *gin.Context) {
	_, pts, ok := h.runPoints(c)
	if !ok {
		return
	}

	fc := toGeoJSON(pts)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getRunProfiles(c *gin.Context) {
	run, pts, ok := h.runPoints(c)
	if !ok {
		return
	}

	// Build against the parameters stored with the run, not whatever the
	// current configuration says.
	profiles, err := pipeline.BuildProfiles(run.Transmitter, pts)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "run has no exportable profiles",
		})
		return
	}

	if a := c.Query("azimuth"); a != "" {
		az, err := strconv.ParseFloat(a, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid azimuth",
			})
			return
		}
		filtered := profiles[:0]
		for _, p := range profiles {
			if p.AzimuthDeg == az {
				filtered = append(filtered, p)
			}
		}
		profiles = filtered
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// runPoints resolves the :id parameter to the run and its point set,
// writing the error response itself when that fails.
func (h *Handler) runPoints(c *gin.Context) (*models.Run, []models.EnrichedPoint, bool) {
	id := c.Param("id")

	run, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch run",
		})
		return nil, nil, false
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "run not found",
		})
		return nil, nil, false
	}

	pts, err := h.points.ListPoints(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch points",
		})
		return nil, nil, false
	}
	return run, pts, true
}
