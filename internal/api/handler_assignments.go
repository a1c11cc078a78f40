package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"queuetimer-backend/internal/mw"
	"queuetimer-backend/internal/parse"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/timer"
)

type assignmentRequest struct {
	Title    string `json:"title" binding:"required"`
	Duration string `json:"duration" binding:"required"`
}

func (r assignmentRequest) input() service.AssignmentInput {
	return service.AssignmentInput{Title: r.Title, Duration: r.Duration}
}

// CreateAssignment handles POST /api/assignments.
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := mw.User(c)
	a, err := h.assignments.Create(c.Request.Context(), user, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp, err := presentAssignment(a, user.Timezone)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListAssignments handles GET /api/assignments.
func (h *Handler) ListAssignments(c *gin.Context) {
	user := mw.User(c)
	list, err := h.assignments.List(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]assignmentResponse, 0, len(list))
	for i := range list {
		resp, err := presentAssignment(&list[i], user.Timezone)
		if err != nil {
			h.respondError(c, err)
			return
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

// GetAssignment handles GET /api/assignments/:id.
func (h *Handler) GetAssignment(c *gin.Context) {
	user := mw.User(c)
	a, err := h.assignments.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp, err := presentAssignment(a, user.Timezone)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateAssignment handles PUT /api/assignments/:id.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := mw.User(c)
	a, err := h.assignments.Update(c.Request.Context(), user, c.Param("id"), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp, err := presentAssignment(a, user.Timezone)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteAssignment handles DELETE /api/assignments/:id.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), mw.User(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transition returns the handler for one timer action on /api/assignments/:id/<action>.
func (h *Handler) Transition(action timer.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.User(c)
		_, out, err := h.assignments.Transition(c.Request.Context(), user, c.Param("id"), action)
		if err != nil {
			h.respondError(c, err)
			return
		}

		body, err := transitionBody(out, user.Timezone)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if body == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func transitionBody(out timer.Outcome, tz string) (gin.H, error) {
	switch out.Action {
	case timer.ActionStart:
		start, err := parse.FormatClock(out.StartTime, tz)
		if err != nil {
			return nil, err
		}
		end, err := parse.FormatClock(out.EstimatedEnd, tz)
		if err != nil {
			return nil, err
		}
		return gin.H{"start_time": start, "estimated_end_time": end}, nil
	case timer.ActionPause:
		return gin.H{"elapsed_time": parse.FormatHMS(out.Elapsed)}, nil
	case timer.ActionResume:
		end, err := parse.FormatClock(out.EstimatedEnd, tz)
		if err != nil {
			return nil, err
		}
		return gin.H{"new_end_time": end}, nil
	}
	return nil, nil
}
