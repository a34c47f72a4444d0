package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/crossfilter"
	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/gin-gonic/gin"
)

// RouteRequest selects a route.
type RouteRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

// OriginRequest selects an origin, then its first destination.
type OriginRequest struct {
	Origin string `json:"origin" binding:"required"`
}

// ModeRequest switches the delay metric.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// MutationResponse tells whether a mutation changed the dashboard, and the resulting view.
type MutationResponse struct {
	Changed bool           `json:"changed"`
	View    dashboard.View `json:"view"`
}

// getPage handles GET /
func (s *Server) getPage(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.builder.Render(&buf, s.dash.View()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// getOrigins handles GET /api/origins
func (s *Server) getOrigins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"origins": s.dash.Origins(),
	})
}

// getDestinations handles GET /api/origins/:origin/destinations
func (s *Server) getDestinations(c *gin.Context) {
	origin := c.Param("origin")

	destinations, err := s.dash.Destinations(c.Request.Context(), origin)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if destinations == nil {
		destinations = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"origin":       origin,
		"destinations": destinations,
	})
}

// getView handles GET /api/view
func (s *Server) getView(c *gin.Context) {
	c.JSON(http.StatusOK, s.dash.View())
}

// putRoute handles PUT /api/route
func (s *Server) putRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route := model.Route{Origin: req.Origin, Destination: req.Destination}
	if err := s.dash.SelectRoute(c.Request.Context(), route); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MutationResponse{Changed: true, View: s.dash.View()})
}

// putOrigin handles PUT /api/origin
func (s *Server) putOrigin(c *gin.Context) {
	var req OriginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.dash.SelectOrigin(c.Request.Context(), req.Origin); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MutationResponse{Changed: true, View: s.dash.View()})
}

// putMode handles PUT /api/mode
func (s *Server) putMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, err := metric.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := s.dash.SetMode(mode)
	s.respond(c, changed, err)
}

// putFilter handles PUT /api/filters/:dimension
func (s *Server) putFilter(c *gin.Context) {
	dimension := config.DimensionName(c.Param("dimension"))

	var req dashboard.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := s.dash.SetFilter(dimension, req)
	s.respond(c, changed, err)
}

// deleteFilter handles DELETE /api/filters/:dimension
func (s *Server) deleteFilter(c *gin.Context) {
	dimension := config.DimensionName(c.Param("dimension"))

	changed, err := s.dash.ClearFilter(dimension)
	s.respond(c, changed, err)
}

// deleteFilters handles DELETE /api/filters
func (s *Server) deleteFilters(c *gin.Context) {
	changed, err := s.dash.ClearAll()
	s.respond(c, changed, err)
}

// subscribe handles GET /api/ws
func (s *Server) subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already sends an error response
		return
	}

	s.hub.serve(conn)
}

// respond maps the outcome of a dashboard mutation to a response.
func (s *Server) respond(c *gin.Context, changed bool, err error) {
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MutationResponse{Changed: changed, View: s.dash.View()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, crossfilter.ErrUnknownDimension):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrInvalidFilter),
		errors.Is(err, metric.ErrInvalidMode),
		errors.Is(err, crossfilter.ErrKeyType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
