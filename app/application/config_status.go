package application

import (
	"net/http"

	"bitwise74/pulse-api/internal"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func isSet(key string) string {
	if viper.GetString(key) == "" {
		return "MISSING"
	}

	return "SET"
}

// ApplicationConfigStatus tells which storage settings are present. Values
// themselves are never returned.
func ApplicationConfigStatus(c *gin.Context, d *internal.Deps) {
	status := "not_configured"
	if d.S3.Configured() {
		status = "configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"settings": gin.H{
			"aws.s3.bucket":         isSet("aws.s3.bucket"),
			"aws.access_key_id":     isSet("aws.access_key_id"),
			"aws.secret_access_key": isSet("aws.secret_access_key"),
			"aws.region":            viper.GetString("aws.region"),
		},
	})
}
