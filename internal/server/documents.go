package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/observability"
	"chat-client/internal/remote"
	"chat-client/internal/telemetry"
)

func (s *Server) handleQuery(c *gin.Context) {
	var q remote.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Collection == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing collection"})
		return
	}

	snap, err := s.store.RunQuery(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": snap})
}

func (s *Server) handleGet(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	doc, err := s.store.Get(c.Request.Context(), collection, id)
	if errors.Is(err, remote.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleAdd(c *gin.Context) {
	collection := c.Param("collection")

	var req struct {
		Data json.RawMessage `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.store.Add(c.Request.Context(), collection, req.Data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create document"})
		return
	}

	observability.IncDocumentWrite("add", collection)
	s.emitWriteAudit(c, "add", collection, id)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleSet(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	var req struct {
		Data json.RawMessage `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.Set(c.Request.Context(), collection, id, req.Data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store document"})
		return
	}

	observability.IncDocumentWrite("set", collection)
	s.emitWriteAudit(c, "set", collection, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdate(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	var req struct {
		Data map[string]any `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.Update(c.Request.Context(), collection, id, req.Data)
	if errors.Is(err, remote.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update document"})
		return
	}

	observability.IncDocumentWrite("update", collection)
	s.emitWriteAudit(c, "update", collection, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleArrayUnion(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	var req struct {
		Field    string `json:"field" binding:"required"`
		Elem     any    `json:"elem"`
		MatchKey string `json:"match_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.ArrayUnion(c.Request.Context(), collection, id, req.Field, req.Elem, req.MatchKey)
	if errors.Is(err, remote.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update document"})
		return
	}

	observability.IncDocumentWrite("array_union", collection)
	s.emitWriteAudit(c, "array_union", collection, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleArrayRemove(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	var req struct {
		Field    string `json:"field" binding:"required"`
		Elem     any    `json:"elem"`
		MatchKey string `json:"match_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.ArrayRemove(c.Request.Context(), collection, id, req.Field, req.Elem, req.MatchKey)
	if errors.Is(err, remote.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update document"})
		return
	}

	observability.IncDocumentWrite("array_remove", collection)
	s.emitWriteAudit(c, "array_remove", collection, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDelete(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	if err := s.store.Delete(c.Request.Context(), collection, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete document"})
		return
	}

	observability.IncDocumentWrite("delete", collection)
	s.emitWriteAudit(c, "delete", collection, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) emitWriteAudit(c *gin.Context, action, collection, id string) {
	s.audit.Emit(c.Request.Context(), c.GetString("uid"), telemetry.AuditPayload{
		Action:     action,
		Collection: collection,
		DocumentID: id,
		Outcome:    "ok",
	})
}
