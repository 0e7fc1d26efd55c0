package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/pkg/response"
)

type swapService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateSwapRequest) (*models.SwapRequest, error)
	List(ctx context.Context, actor models.Actor, query dto.SwapQuery) ([]models.SwapRequest, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type matchingService interface {
	Accept(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error)
}

// SwapHandler exposes the swap marketplace.
type SwapHandler struct {
	swaps    swapService
	matching matchingService
}

// NewSwapHandler constructs the handler.
func NewSwapHandler(swaps swapService, matching matchingService) *SwapHandler {
	return &SwapHandler{swaps: swaps, matching: matching}
}

// List godoc
// @Summary List swap requests of the caller's school
// @Tags Swaps
// @Produce json
// @Param filter query string false "all, mine or inbox"
// @Param status query string false "pending or matched"
// @Param limit query int false "Maximum number of requests"
// @Success 200 {object} response.Envelope
// @Router /swaps [get]
func (h *SwapHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.SwapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid swap query"))
		return
	}
	reqs, err := h.swaps.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSwapRequestResponses(reqs))
}

// Create godoc
// @Summary Offer a slot for swap
// @Tags Swaps
// @Accept json
// @Produce json
// @Param payload body dto.CreateSwapRequest true "Swap payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /swaps [post]
func (h *SwapHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid swap payload"))
		return
	}
	created, err := h.swaps.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSwapRequestResponse(created))
}

// Get godoc
// @Summary Get a swap request
// @Tags Swaps
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /swaps/{id} [get]
func (h *SwapHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, err := h.swaps.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSwapRequestResponse(req))
}

// Delete godoc
// @Summary Withdraw a pending swap request
// @Tags Swaps
// @Param id path string true "Request ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swaps/{id} [delete]
func (h *SwapHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.swaps.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Accept godoc
// @Summary Accept a pending swap request
// @Tags Swaps
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swaps/{id}/accept [post]
func (h *SwapHandler) Accept(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	matched, err := h.matching.Accept(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSwapRequestResponse(matched))
}
