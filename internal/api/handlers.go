// Package api wires up the Gin HTTP router for VaporDB's single-endpoint
// command dispatch.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejxsmore/vapordb-go/internal/engine"
)

// Handler holds the engine every request is dispatched against.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a Handler.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/cmd", h.Execute)
	r.GET("/health", h.Health)
}

// response is the wire shape every /cmd call returns.
type response struct {
	Result *string `json:"result"`
	Error  *string `json:"error"`
}

// Execute handles POST /cmd: {"cmd": "<name>", ...fields}.
func (h *Handler) Execute(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Error: strPtr(err.Error())})
		return
	}

	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, response{Error: strPtr(err.Error())})
		return
	}

	if req.Cmd == "setwithexpiration" {
		if err := h.engine.SetWithExpiration(req.Key, req.Value, req.ttl()); err != nil {
			c.JSON(http.StatusInternalServerError, response{Error: strPtr(err.Error())})
			return
		}
		c.JSON(http.StatusOK, response{})
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Error: strPtr(err.Error())})
		return
	}

	result, err := h.engine.Execute(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: strPtr(err.Error())})
		return
	}
	c.JSON(http.StatusOK, response{Result: result})
}

// Health reports liveness for load balancers and readiness probes.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func strPtr(s string) *string { return &s }
