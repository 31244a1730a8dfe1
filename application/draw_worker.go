package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DrawWorker periodically draws sold-out raffles and active raffles past their draw time
type DrawWorker struct {
	raffleRepo interfaces.RaffleRepository
	drawEngine interfaces.DrawEngine
	schedule   string
	now        func() time.Time
}

// SweepResult summarizes one pass over the drawable raffles
type SweepResult struct {
	Found        int
	Drawn        int
	AlreadyDrawn int
	Skipped      int
	Failed       int
}

// NewDrawWorker creates a new draw worker running on the given cron schedule
func NewDrawWorker(raffleRepo interfaces.RaffleRepository, drawEngine interfaces.DrawEngine, schedule string) *DrawWorker {
	return &DrawWorker{
		raffleRepo: raffleRepo,
		drawEngine: drawEngine,
		schedule:   schedule,
		now:        time.Now,
	}
}

// Start schedules the sweep and returns a function that stops it and waits for a running sweep
func (w *DrawWorker) Start(ctx context.Context) (func(), error) {
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			log.WithError(err).Error("Draw sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid draw schedule %q: %w", w.schedule, err)
	}

	c.Start()
	log.WithField("schedule", w.schedule).Info("Draw worker started")

	return func() {
		<-c.Stop().Done()
		log.Info("Draw worker stopped")
	}, nil
}

// RunOnce draws every raffle that is drawable now. A failing raffle never stops the sweep.
func (w *DrawWorker) RunOnce(ctx context.Context) (*SweepResult, error) {
	now := w.now().UTC()
	raffles, err := w.raffleRepo.GetDrawable(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get drawable raffles: %w", err)
	}

	result := &SweepResult{Found: len(raffles)}
	if len(raffles) == 0 {
		log.Debug("No raffles ready to draw")
		return result, nil
	}

	for _, raffle := range raffles {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		// Active raffles only reach here past their draw time, which is what force allows
		opts := interfaces.DrawOptions{Force: raffle.Status == entities.RaffleStatusActive}
		outcome, err := w.drawEngine.Draw(ctx, raffle.ID, opts)
		switch {
		case errors.Is(err, domain.ErrRaffleNotDrawable), errors.Is(err, domain.ErrRaffleNotFound):
			// Cancelled or drawn by someone else since the query
			result.Skipped++
		case err != nil:
			result.Failed++
			log.WithFields(log.Fields{
				"raffleID": raffle.ID,
				"status":   raffle.Status,
				"error":    err,
			}).Error("Failed to draw raffle")
		case outcome.AlreadyDrawn:
			result.AlreadyDrawn++
		default:
			result.Drawn++
			log.WithFields(log.Fields{
				"raffleID":     raffle.ID,
				"winningCode":  outcome.WinningCode,
				"winnerUserID": outcome.WinnerUserID,
				"forced":       opts.Force,
			}).Info("Raffle drawn")
		}
	}

	log.WithFields(log.Fields{
		"found":        result.Found,
		"drawn":        result.Drawn,
		"alreadyDrawn": result.AlreadyDrawn,
		"skipped":      result.Skipped,
		"failed":       result.Failed,
	}).Info("Completed draw sweep")

	return result, nil
}
