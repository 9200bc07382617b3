// Package api exposes the CRM over a JSON HTTP API built on gin.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/pkg/schema"
	"github.com/celerix-dev/localcrm/pkg/sdk"
	"github.com/gin-gonic/gin"
)

const invalidCredentials = "Invalid credentials. Check your email and password."

type Handler struct {
	CRM    sdk.CRM
	Logger *slog.Logger
}

// Register wires every API route onto g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/health", h.Health)
	g.POST("/login", h.Login)

	g.GET("/users", h.List(schema.Users))
	g.POST("/users", h.Save(schema.Users))
	g.PUT("/users/:id", h.Update(schema.Users, "User"))
	g.DELETE("/users/:id", h.Delete(schema.Users))

	g.GET("/leads", h.List(schema.Leads))
	g.POST("/leads", h.Save(schema.Leads))
	g.GET("/leads/:id", h.Get(schema.Leads, "Lead"))
	g.PUT("/leads/:id", h.Update(schema.Leads, "Lead"))
	g.DELETE("/leads/:id", h.Delete(schema.Leads))

	g.GET("/activities", h.List(schema.Activities))
	g.POST("/activities", h.Save(schema.Activities))
	g.GET("/activities/:leadId", h.ActivitiesByLead)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.CRM.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	user, err := h.CRM.Login(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, sdk.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": invalidCredentials})
			return
		}
		h.fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// List returns the whole collection as a bare JSON array.
func (h *Handler) List(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.CRM.List(collection)
		if err != nil {
			h.fail(c, err, "Collection")
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func (h *Handler) Get(collection, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.CRM.Get(collection, c.Param("id"))
		if err != nil {
			h.fail(c, err, label)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func (h *Handler) Save(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := bindRecord(c)
		if !ok {
			return
		}
		stored, err := h.CRM.Save(collection, rec)
		if err != nil {
			h.fail(c, err, "Record")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, schema.Singular(collection): stored})
	}
}

func (h *Handler) Update(collection, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		patch, ok := bindRecord(c)
		if !ok {
			return
		}
		updated, err := h.CRM.Update(collection, c.Param("id"), patch)
		if err != nil {
			h.fail(c, err, label)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, schema.Singular(collection): updated})
	}
}

func (h *Handler) Delete(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.CRM.Delete(collection, c.Param("id")); err != nil {
			h.fail(c, err, "Record")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *Handler) ActivitiesByLead(c *gin.Context) {
	records, err := h.CRM.Activities(c.Param("leadId"))
	if err != nil {
		h.fail(c, err, "Lead")
		return
	}
	c.JSON(http.StatusOK, records)
}

func bindRecord(c *gin.Context) (schema.Record, bool) {
	var rec schema.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return nil, false
	}
	if rec == nil {
		rec = schema.Record{}
	}
	return rec, true
}

// fail maps store errors onto status codes.
func (h *Handler) fail(c *gin.Context, err error, label string) {
	switch {
	case errors.Is(err, sdk.ErrNotFound), errors.Is(err, engine.ErrUnknownCollection):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": label + " not found"})
	default:
		h.logger().Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
