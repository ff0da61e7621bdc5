package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// window resolves the request window, recording a validation error on failure
func (s *Server) window(c *gin.Context) (types.Window, bool) {
	q, err := windowQuery(c)
	if err == nil {
		var w types.Window
		if w, err = s.analyzer.ResolveWindow(q); err == nil {
			return w, true
		}
	}
	_ = c.Error(err)
	return types.Window{}, false
}

func (s *Server) memberAnalytics(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}

	res, err := s.analyzer.MemberAnalytics(c.Request.Context(), c.Param("id"), w)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) projectAnalytics(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}

	res, err := s.analyzer.ProjectAnalytics(c.Request.Context(), c.Param("key"), w)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) collaboration(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}
	minScore, err := floatQuery(c, "min_score")
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := s.analyzer.CollaborationNetwork(c.Request.Context(), c.Param("id"), w, analysis.CollaborationOptions{
		Limit:    limit,
		MinScore: minScore,
		Project:  c.Query("project"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) dashboard(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := s.analyzer.Dashboard(c.Request.Context(), w, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) activities(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := s.analyzer.SearchActivities(c.Request.Context(), w, analysis.ActivityQuery{
		MemberName: c.Query("member_name"),
		Source:     types.SourceType(c.Query("source")),
		Project:    c.Query("project"),
		Limit:      limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) invalidateDirectory(c *gin.Context) {
	if err := s.analyzer.InvalidateDirectory(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member directory invalidated"})
}
