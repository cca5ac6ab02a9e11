package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope returned by the join gateway. Exactly one
// shape is populated per status: success, degraded, unauthorized or error.
type Response struct {
	Success       bool   `json:"success"`
	ThreadID      string `json:"threadId,omitempty"`
	PostID        string `json:"postId,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
	RequiredLevel string `json:"requiredLevel,omitempty"`
	Details       string `json:"details,omitempty"`
}

// Success sends a 200 response carrying the created resource ids.
func Success(c *gin.Context, threadID, postID string) {
	c.JSON(http.StatusOK, Response{
		Success:  true,
		ThreadID: threadID,
		PostID:   postID,
	})
}

// Degraded sends a 200 response for a soft failure of a secondary channel.
func Degraded(c *gin.Context, reason string) {
	c.JSON(http.StatusOK, Response{
		Success:  true,
		Degraded: true,
		Reason:   reason,
	})
}

// Accepted sends a 202 response with no payload beyond the success flag.
func Accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, Response{Success: true})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, details string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   code,
		Details: details,
	})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, details string) {
	Error(c, http.StatusBadRequest, "BadRequest", details)
}

// Unauthorized sends a 401 error response. requiredLevel may be empty.
func Unauthorized(c *gin.Context, requiredLevel string) {
	c.JSON(http.StatusUnauthorized, Response{
		Success:       false,
		Error:         "Unauthorized",
		RequiredLevel: requiredLevel,
	})
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, code, details string) {
	Error(c, http.StatusInternalServerError, code, details)
}
