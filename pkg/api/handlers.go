package api

import (
	"errors"
	"fmt"
	"net/http"

	"contactdb/pkg/common"
	"contactdb/pkg/core"

	"github.com/gin-gonic/gin"
)

// fail maps service errors: validation is 400, a missing contact is 404,
// anything else is a 500 carrying failMsg.
func (s *Server) fail(c *gin.Context, err error, failMsg string) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "Invalid contact"
		if verr.Message == "is required" {
			msg = "Name, phone, and email are required."
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   msg,
			Details: verr.Error(),
		})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: notFoundMessage(c),
		})
	default:
		s.logger.Error(failMsg, "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   failMsg,
			Details: err.Error(),
		})
	}
}

func notFoundMessage(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return fmt.Sprintf("Contact with ID %q not found.", id)
	}
	return fmt.Sprintf("Contact named %q not found.", c.Param("name"))
}

func (s *Server) bindInput(c *gin.Context) (common.ContactInput, bool) {
	var in common.ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return in, false
	}
	return in, true
}

func (s *Server) handleList(c *gin.Context) {
	order := core.ParseSortOrder(c.Query("sortBy"))
	c.JSON(http.StatusOK, common.ContactList(s.svc.List(order, c.Query("searchTerm"))))
}

func (s *Server) handleNewlyAdded(c *gin.Context) {
	c.JSON(http.StatusOK, common.ContactList(s.svc.List(core.SortDateAddedDesc, "")))
}

func (s *Server) handleMostRecentActivity(c *gin.Context) {
	c.JSON(http.StatusOK, common.ContactList(s.svc.List(core.SortLastActivityDesc, "")))
}

func (s *Server) handleSearchByName(c *gin.Context) {
	contact, err := s.svc.SearchByName(c.Param("name"))
	if err != nil {
		s.fail(c, err, "Failed to search contact")
		return
	}
	c.JSON(http.StatusOK, contact.JSON())
}

func (s *Server) handleGet(c *gin.Context) {
	contact, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to fetch contact")
		return
	}
	c.JSON(http.StatusOK, contact.JSON())
}

func (s *Server) handleCreate(c *gin.Context) {
	in, ok := s.bindInput(c)
	if !ok {
		return
	}
	contact, err := s.svc.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err, "Failed to add contact")
		return
	}
	c.JSON(http.StatusCreated, ContactResponse{
		Message: "Contact added successfully",
		Contact: contact.JSON(),
	})
}

func (s *Server) handleUpdate(c *gin.Context) {
	in, ok := s.bindInput(c)
	if !ok {
		return
	}
	contact, err := s.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err, "Failed to update contact")
		return
	}
	c.JSON(http.StatusOK, ContactResponse{
		Message: "Contact updated successfully",
		Contact: contact.JSON(),
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	contact, err := s.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to delete contact")
		return
	}
	c.JSON(http.StatusOK, ContactResponse{
		Message: "Contact deleted successfully",
		Contact: contact.JSON(),
	})
}

func (s *Server) handleRebuild(c *gin.Context) {
	n, err := s.svc.Rebuild(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to rebuild index")
		return
	}
	c.JSON(http.StatusOK, RebuildResponse{Loaded: n})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Stats())
}
