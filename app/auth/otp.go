package auth

import (
	"net/http"

	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/pkg/apperr"
	"bitwise74/pulse-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type emailBody struct {
	Email string `json:"email"`
}

type verifyBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// bindEmail reads and validates an {"email"} body. It writes the error
// response itself and reports whether the handler can go on.
func bindEmail(c *gin.Context) (string, bool) {
	requestID := c.MustGet("requestID").(string)

	var data emailBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return "", false
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return "", false
	}

	return data.Email, true
}

func AuthLogin(c *gin.Context, d *internal.Deps) {
	email, ok := bindEmail(c)
	if !ok {
		return
	}

	res, err := d.Auth.LoginWithEmail(c.Request.Context(), email)
	if err != nil {
		apperr.Respond(c, err, "Failed to start OTP login")
		return
	}

	c.JSON(http.StatusOK, res)
}

func AuthResendOTP(c *gin.Context, d *internal.Deps) {
	email, ok := bindEmail(c)
	if !ok {
		return
	}

	res, err := d.Auth.ResendOTP(c.Request.Context(), email)
	if err != nil {
		apperr.Respond(c, err, "Failed to resend OTP")
		return
	}

	c.JSON(http.StatusOK, res)
}

func AuthVerifyOTP(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.OTPValidator(data.OTP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	session, err := d.Auth.VerifyOTP(c.Request.Context(), data.Email, data.OTP)
	if err != nil {
		apperr.Respond(c, err, "Failed to verify OTP")
		return
	}

	c.JSON(http.StatusOK, session)
}
