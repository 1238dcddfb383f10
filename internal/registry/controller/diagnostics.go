package controller

import (
	"net/http"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/gin-gonic/gin"
)

// collectionProbeLimit caps how many collection names the liveness
// probe reports.
const collectionProbeLimit = 10

// Diagnostics handles GET /test: operational visibility into the store
// configuration and connectivity. It never fails the request; every
// problem is reported as a text field with status 200.
func (r *Registry) Diagnostics(c *gin.Context) {
	resp := gin.H{
		"backend":           "running",
		"database":          "not available",
		"database_url":      envStatus("settings.db.registry.addr"),
		"database_name":     envStatus("settings.db.registry.db"),
		"connection_status": "not connected",
		"collections":       []string{},
	}

	if r.db != nil {
		resp["connection_status"] = "connected"

		names, err := r.db.ListCollectionNames(c.Request.Context(), collectionProbeLimit)
		if err != nil {
			resp["database"] = "connected but error: " + truncateDetail(err.Error())
		} else {
			resp["database"] = "connected and working"
			resp["collections"] = names
		}
	}

	c.JSON(http.StatusOK, resp)
}

func envStatus(key string) string {
	if gconfig.Shared.GetString(key) == "" {
		return "not set"
	}
	return "set"
}
