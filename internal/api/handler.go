// Package api serves the read-side query shapes over HTTP.
package api

import (
	"net/http"
	"strconv"

	"github.com/aipdata/aip/internal/query"
	"github.com/aipdata/aip/internal/reference"
	"github.com/aipdata/aip/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultListLimit caps /papers when no limit is given.
const DefaultListLimit = 100

type Handler struct {
	DB  *storage.DB
	Log *zap.Logger
}

func NewHandler(db *storage.DB, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Log: log}
}

// NewRouter builds the engine with the API under /api, a health probe and
// the Prometheus metrics of gatherer under /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	h.RegisterRoutes(router.Group("/api"))
	return router
}

// RegisterRoutes mounts the query endpoints. Paper ids contain slashes, so
// they are passed as the id query parameter rather than a path segment.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.stats)
	rg.GET("/papers", h.listPapers)
	rg.GET("/paper", h.getPaper)
	rg.GET("/paper/authors", h.paperAuthors)
	rg.GET("/years/publications", h.publicationsPerYear)
	rg.GET("/years/citations", h.citationsPerYear)
	rg.GET("/years/citations/:year", h.citationsInYearRange)
	rg.GET("/words/:word", h.wordPopularity)
	rg.GET("/authors/citations", h.authorCitations)
	rg.GET("/citations/matrix", h.citationMatrix)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.DB.Conn().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.Log.Error("Query failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	out := gin.H{}
	for name, count := range map[string]func() (int, error){
		"papers":      func() (int, error) { return h.DB.CountPapers(ctx) },
		"authors":     func() (int, error) { return h.DB.CountAuthors(ctx) },
		"authorships": func() (int, error) { return h.DB.CountAuthorships(ctx) },
		"citations":   func() (int, error) { return h.DB.CountCitations(ctx) },
	} {
		n, err := count()
		if err != nil {
			h.fail(c, err)
			return
		}
		out[name] = n
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) listPapers(c *gin.Context) {
	limit := DefaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	papers, err := h.DB.ListPapers(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if papers == nil {
		papers = []reference.Paper{}
	}
	c.JSON(http.StatusOK, gin.H{"papers": papers, "count": len(papers)})
}

func (h *Handler) getPaper(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.DB.GetPaper(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "paper not found", "id": id})
		return
	}
	edges, err := h.DB.PaperAuthorships(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, e := range edges {
		p.Authors = append(p.Authors, reference.Author{Name: e.AuthorID, ORCID: e.ORCID, Position: e.Position})
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) paperAuthors(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	names, err := query.PaperAuthors(c.Request.Context(), h.DB.Conn(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "authors": names})
}

func requireID(c *gin.Context) (string, bool) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return "", false
	}
	return id, true
}

func (h *Handler) publicationsPerYear(c *gin.Context) {
	counts, err := query.PublicationsPerYear(c.Request.Context(), h.DB.Conn())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) citationsPerYear(c *gin.Context) {
	counts, err := query.CitationsPerYear(c.Request.Context(), h.DB.Conn())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// citationsInYearRange counts citations from papers published within dt
// years (default 0) of :year.
func (h *Handler) citationsInYearRange(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
		return
	}
	dt, err := strconv.Atoi(c.DefaultQuery("dt", "0"))
	if err != nil || dt < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dt must be a non-negative integer"})
		return
	}
	n, err := query.CitationsInYearRange(c.Request.Context(), h.DB.Conn(), year, dt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "dt": dt, "citations": n})
}

func (h *Handler) wordPopularity(c *gin.Context) {
	counts, err := query.WordPopularity(c.Request.Context(), h.DB.Conn(), c.Param("word"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) authorCitations(c *gin.Context) {
	sums, err := query.AuthorCitationSums(c.Request.Context(), h.DB.Conn())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sums)
}

func (h *Handler) citationMatrix(c *gin.Context) {
	m, err := query.CitationsByYearMatrix(c.Request.Context(), h.DB.Conn())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
