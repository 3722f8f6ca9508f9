package server

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cambra/puertos-china/internal/analysis"
	"github.com/cambra/puertos-china/internal/charts"
	"github.com/cambra/puertos-china/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// filterQuery binds the dashboard controls from the query string.
type filterQuery struct {
	Merchandise []string `form:"mercaderia"`
	Ports       []string `form:"puerto"`
	FromYear    int      `form:"desde" binding:"omitempty,gte=1900,lte=2100"`
	ToYear      int      `form:"hasta" binding:"omitempty,gte=1900,lte=2100"`
	Tab         string   `form:"tab" binding:"omitempty,max=16"`
}

func (q filterQuery) filter() analysis.Filter {
	return analysis.Filter{
		Merchandise: compact(q.Merchandise),
		Ports:       compact(q.Ports),
		FromYear:    q.FromYear,
		ToYear:      q.ToYear,
		Tab:         analysis.Tab(q.Tab),
	}
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// encodeFilter renders f back into the query string the handlers accept.
func encodeFilter(f analysis.Filter) string {
	q := url.Values{}
	for _, m := range f.Merchandise {
		q.Add("mercaderia", m)
	}
	for _, p := range f.Ports {
		q.Add("puerto", p)
	}
	if f.FromYear != 0 {
		q.Set("desde", strconv.Itoa(f.FromYear))
	}
	if f.ToYear != 0 {
		q.Set("hasta", strconv.Itoa(f.ToYear))
	}
	if f.Tab != "" {
		q.Set("tab", string(f.Tab))
	}
	return q.Encode()
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// compute binds the filter and recomputes the view. It writes the error
// response itself and reports false on failure.
func (s *Server) compute(c *gin.Context) (analysis.View, bool) {
	var q filterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, fmt.Errorf("invalid filter: %w", err))
		return analysis.View{}, false
	}
	v := s.dash.Compute(c.Request.Context(), q.filter())
	s.metrics.ComputationsTotal.WithLabelValues(string(v.Filter.Tab)).Inc()
	return v, true
}

func (s *Server) handleIndex(c *gin.Context) {
	v, ok := s.compute(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", s.page(v))
}

func (s *Server) handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.dash.Options())
}

func (s *Server) handleDashboard(c *gin.Context) {
	v, ok := s.compute(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleChart(c *gin.Context) {
	file := c.Param("file")
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)

	format, err := charts.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		badRequest(c, err)
		return
	}
	switch name {
	case charts.FigureSeries, charts.FigureRanking, charts.FigureTreemap:
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown chart %q", name)})
		return
	}

	v, ok := s.compute(c)
	if !ok {
		return
	}
	img, err := charts.Render(name, v, format, s.cfg.Dashboard.ChartScale)
	if err != nil {
		s.logger.Error("chart render failed", zap.String("chart", name), zap.Error(err))
		internalError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), img)
}

func (s *Server) handleExport(c *gin.Context) {
	v, ok := s.compute(c)
	if !ok {
		return
	}
	f, err := report.Workbook(v)
	if err != nil {
		internalError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		internalError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.WorkbookName+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rows":   s.dash.TableRows(),
	})
}
