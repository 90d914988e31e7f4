package service

import (
	"context"
	"errors"

	"bitwise74/pulse-api/aws"
	"bitwise74/pulse-api/internal/application"

	"go.uber.org/zap"
)

type DailyProcessor interface {
	ProcessDaily(ctx context.Context) (*application.ProcessResult, error)
}

// ApplicationProcessing returns a job that turns today's submitted forms
// into pending applicants
func ApplicationProcessing(p DailyProcessor) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		res, err := p.ProcessDaily(ctx)
		if err != nil {
			if errors.Is(err, aws.ErrNotConfigured) {
				return
			}

			zap.L().Error("Scheduled application processing failed", zap.Error(err))
			return
		}

		if res.Processed == 0 && res.Failed == 0 {
			return
		}

		zap.L().Info("Application processing finished",
			zap.Int("processed", res.Processed),
			zap.Int("failed", res.Failed),
			zap.Strings("errors", res.Errors),
		)
	}
}
