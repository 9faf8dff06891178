package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errServer = errors.New("server error")

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
