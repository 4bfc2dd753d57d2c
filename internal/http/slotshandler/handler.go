package slotshandler

import (
	"net/http"

	"chatrelay/internal/registry"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Handler { return &Handler{reg: reg} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/slots", h.slots)
}

// @Summary		Relay health
// @Description	Reports capacity and the number of occupied slots.
// @Tags			Relay
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Capacity: h.reg.Capacity(),
		Occupied: h.reg.Occupied(),
	})
}

// @Summary		List slots
// @Description	Returns the slot table with the peer address of every active slot.
// @Tags			Relay
// @Param			active	query		bool	false	"Only active slots"
// @Success		200		{array}		registry.SlotInfo
// @Failure		400		{object}	ErrorResponse
// @Router			/slots [get]
func (h *Handler) slots(c *gin.Context) {
	var q SlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	snap := h.reg.Snapshot()
	if !q.Active {
		c.JSON(http.StatusOK, snap)
		return
	}
	out := make([]registry.SlotInfo, 0, len(snap))
	for _, s := range snap {
		if s.Active {
			out = append(out, s)
		}
	}
	c.JSON(http.StatusOK, out)
}
