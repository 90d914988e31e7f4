package validators

import "errors"

var (
	ErrOTPEmpty   = errors.New("no otp provided")
	ErrOTPInvalid = errors.New("otp must be 6 digits")
)

func OTPValidator(code string) error {
	if code == "" {
		return ErrOTPEmpty
	}

	if len(code) != 6 {
		return ErrOTPInvalid
	}

	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrOTPInvalid
		}
	}

	return nil
}
