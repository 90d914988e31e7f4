package auth

import (
	"net/http"

	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/pkg/apperr"

	"github.com/gin-gonic/gin"
)

type googleBody struct {
	IDToken string `json:"idToken"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func AuthGoogle(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data googleBody
	if err := c.ShouldBindJSON(&data); err != nil || data.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Google ID token is required",
			"requestID": requestID,
		})
		return
	}

	session, err := d.Auth.LoginWithGoogle(c.Request.Context(), data.IDToken)
	if err != nil {
		apperr.Respond(c, err, "Failed to login with Google")
		return
	}

	c.JSON(http.StatusOK, session)
}

// bindRefresh reads the refresh token from the body
func bindRefresh(c *gin.Context) (string, bool) {
	var data refreshBody
	if err := c.ShouldBindJSON(&data); err != nil || data.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Refresh token is required",
			"requestID": c.MustGet("requestID").(string),
		})
		return "", false
	}

	return data.RefreshToken, true
}

func AuthRefresh(c *gin.Context, d *internal.Deps) {
	refreshToken, ok := bindRefresh(c)
	if !ok {
		return
	}

	session, err := d.Auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		apperr.Respond(c, err, "Failed to refresh session")
		return
	}

	c.JSON(http.StatusOK, session)
}

func AuthLogout(c *gin.Context, d *internal.Deps) {
	refreshToken, ok := bindRefresh(c)
	if !ok {
		return
	}

	if err := d.Auth.Logout(c.Request.Context(), c.GetString("userID"), refreshToken); err != nil {
		apperr.Respond(c, err, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func AuthLogoutAll(c *gin.Context, d *internal.Deps) {
	if err := d.Auth.LogoutAll(c.Request.Context(), c.GetString("userID")); err != nil {
		apperr.Respond(c, err, "Failed to logout from all sessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out from all sessions"})
}
