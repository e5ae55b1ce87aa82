// backend-go/internal/api/handlers/decision_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type DecisionHandler struct {
	repo repository.DecisionRepository
}

func NewDecisionHandler(repo repository.DecisionRepository) *DecisionHandler {
	return &DecisionHandler{repo: repo}
}

func supplierParam(c *gin.Context) string {
	return domain.NormalizeSupplier(c.Query("supplier"))
}

// weekParams reads :year and :week from the path.
func weekParams(c *gin.Context) (int, int, bool) {
	year, errY := strconv.Atoi(c.Param("year"))
	week, errW := strconv.Atoi(c.Param("week"))
	if errY != nil || errW != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and week must be integers"})
		return 0, 0, false
	}
	return year, week, true
}

// writeError maps argument errors to 400; anything else is a server error.
func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidSupplier), errors.Is(err, domain.ErrInvalidWeek):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

func (h *DecisionHandler) GetSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"suppliers":    h.repo.Suppliers(),
		"current_week": h.repo.CurrentWeek(),
	})
}

func (h *DecisionHandler) GetAvailableWeeks(c *gin.Context) {
	weeks, err := h.repo.GetAvailableWeeks(c.Request.Context(), supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to fetch available weeks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

func (h *DecisionHandler) GetAvailableWeeksForYear(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
		return
	}
	weeks, err := h.repo.GetAvailableWeeksForYear(c.Request.Context(), supplierParam(c), year)
	if err != nil {
		writeError(c, err, "failed to fetch available weeks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "weeks": weeks})
}

func (h *DecisionHandler) GetExtendedWeeks(c *gin.Context) {
	current := h.repo.CurrentWeek()
	fromWeek, _ := strconv.Atoi(c.DefaultQuery("from_week", strconv.Itoa(current.Week)))
	fromYear, _ := strconv.Atoi(c.DefaultQuery("from_year", strconv.Itoa(current.Year)))

	weeks, err := h.repo.GetExtendedAvailableWeeksFromWeek(c.Request.Context(), supplierParam(c), fromWeek, fromYear)
	if err != nil {
		writeError(c, err, "failed to extend available weeks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

func (h *DecisionHandler) CheckWeek(c *gin.Context) {
	year, errY := strconv.Atoi(c.Query("year"))
	week, errW := strconv.Atoi(c.Query("week"))
	if errY != nil || errW != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and week are required"})
		return
	}
	ok, err := h.repo.CheckWeekAvailability(c.Request.Context(), supplierParam(c), week, year)
	if err != nil {
		writeError(c, err, "failed to check week")
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "week": week, "available": ok})
}

// GetDecisions returns the enriched decisions of a week, optionally narrowed
// by a filter type (all, promo, entrants, sortants) and a free-text query.
func (h *DecisionHandler) GetDecisions(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	supplier := supplierParam(c)

	products, err := h.repo.GetWeekDecisions(ctx, year, week, supplier)
	if err != nil {
		writeError(c, err, "failed to fetch decisions")
		return
	}

	in := analytics.FilterInput{
		Type:  analytics.ParseFilterType(c.DefaultQuery("filter", string(analytics.FilterAll))),
		Query: c.Query("q"),
	}
	if in.Type == analytics.FilterEntrants || in.Type == analytics.FilterSortants {
		prev := domain.WeekRef{Year: year, Week: week}.Previous()
		previous, err := h.repo.GetWeekDecisions(ctx, prev.Year, prev.Week, supplier)
		if err != nil {
			log.Warn().Err(err).Str("week", prev.String()).Msg("previous week unavailable, comparing against an empty week")
		}
		in.Previous = previous
	}

	filtered := analytics.FilterProducts(products, in)
	c.JSON(http.StatusOK, gin.H{
		"year":     year,
		"week":     week,
		"supplier": supplier,
		"filter":   in.Type,
		"items":    filtered,
		"total":    len(filtered),
	})
}

func (h *DecisionHandler) GetSuggestions(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}
	products, err := h.repo.GetWeekDecisions(c.Request.Context(), year, week, supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to fetch decisions")
		return
	}
	suggestions := analytics.Suggestions(products, c.Query("q"))
	if suggestions == nil {
		suggestions = []analytics.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *DecisionHandler) GetStats(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}
	stats, err := h.repo.GetWeekStats(c.Request.Context(), year, week, supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DecisionHandler) GetPalmares(c *gin.Context) {
	product := strings.TrimSpace(c.Query("product"))
	code := strings.TrimSpace(c.Query("code"))
	if product == "" && code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product or code is required"})
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))
	week, _ := strconv.Atoi(c.Query("week"))

	palmares, err := h.repo.GetProductHistorySinceOctober(c.Request.Context(), product, supplierParam(c), repository.HistoryOptions{
		ProductCode: code,
		Year:        year,
		Week:        week,
	})
	if err != nil {
		writeError(c, err, "failed to compute palmares")
		return
	}
	c.JSON(http.StatusOK, palmares)
}

func (h *DecisionHandler) GetRuptures(c *gin.Context) {
	events, err := h.repo.GetRuptureHistoryForProduct(c.Request.Context(), c.Param("code"), supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to fetch ruptures")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_code": c.Param("code"), "events": events})
}

func (h *DecisionHandler) GetRuptureSummary(c *gin.Context) {
	summary, err := h.repo.GetRuptureSummaryForProduct(c.Request.Context(), c.Param("code"), supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to summarize ruptures")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *DecisionHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"items": []domain.EnrichedProduct{}, "total": 0})
		return
	}
	items, err := h.repo.SearchProductsInAllWeeks(c.Request.Context(), query, supplierParam(c))
	if err != nil {
		writeError(c, err, "failed to search products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *DecisionHandler) GetProfile(c *gin.Context) {
	profile := h.repo.GetUserProfile(c.Request.Context(), c.Param("uid"))
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ClearCache drops every cached entry, or only one supplier's when given.
func (h *DecisionHandler) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()
	if supplier := strings.TrimSpace(c.Query("supplier")); supplier != "" {
		h.repo.ClearSupplierCache(ctx, domain.NormalizeSupplier(supplier))
		c.JSON(http.StatusOK, gin.H{"cleared": domain.NormalizeSupplier(supplier)})
		return
	}
	h.repo.ClearCache(ctx)
	c.JSON(http.StatusOK, gin.H{"cleared": "all"})
}
