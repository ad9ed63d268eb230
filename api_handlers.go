package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// helloHandler returns a fixed greeting.
// Method: GET /api/v1/hello
// Access: Public
func (a *App) helloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": "Hello from the microsite API!"})
}
