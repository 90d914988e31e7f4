package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// Sweeper deletes records that expired before now
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenCleanup returns a job that removes expired refresh tokens
func TokenCleanup(s Sweeper) func() {
	return sweepJob("refresh tokens", s)
}

// OTPCleanup returns a job that removes abandoned login codes. Verification
// already ignores expired codes, this only keeps the store small.
func OTPCleanup(s Sweeper) func() {
	return sweepJob("otp codes", s)
}

func sweepJob(what string, s Sweeper) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := s.SweepExpired(ctx, time.Now())
		if err != nil {
			zap.L().Error("Failed to clean up expired "+what, zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Info("Cleaned up expired "+what, zap.Int64("deleted", n))
		}
	}
}
