package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Controller handles general HTTP requests.
type Controller struct {
	db Pinger
}

// New creates a new Controller checking connectivity through db.
func New(db Pinger) *Controller {
	return &Controller{
		db: db,
	}
}

// Health handles the HTTP GET request for the health check endpoint.
func (con *Controller) Health(c *gin.Context) {
	if err := con.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Database connection failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Database connection successful.",
	})
}
