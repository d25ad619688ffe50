package services

import (
	"context"
	"time"

	"github.com/yeremiapane/tablebook/utils"
)

// CompletionSweeper runs CompletionService.Sweep on a ticker. Each tick also
// prunes expired entries from the token blacklist.
type CompletionSweeper struct {
	Completion *CompletionService
	StopChan   chan struct{}
	Interval   time.Duration
}

func NewCompletionSweeper(completion *CompletionService, interval time.Duration) *CompletionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CompletionSweeper{
		Completion: completion,
		StopChan:   make(chan struct{}),
		Interval:   interval,
	}
}

func (cs *CompletionSweeper) Start() {
	go func() {
		ticker := time.NewTicker(cs.Interval)
		defer ticker.Stop()

		utils.InfoLogger.Printf("Completion sweeper started (interval %s)", cs.Interval)
		for {
			select {
			case <-ticker.C:
				cs.sweep()
			case <-cs.StopChan:
				utils.InfoLogger.Println("Completion sweeper stopped")
				return
			}
		}
	}()
}

func (cs *CompletionSweeper) Stop() {
	close(cs.StopChan)
}

func (cs *CompletionSweeper) sweep() {
	// bounded so a stuck database cannot pile up ticks
	ctx, cancel := context.WithTimeout(context.Background(), cs.Interval)
	defer cancel()

	utils.Revoked.Cleanup()

	n, err := cs.Completion.Sweep(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Completion sweep failed: %v", err)
		return
	}
	if n > 0 {
		utils.InfoLogger.Printf("Completion sweep moved %d reservation(s)", n)
	}
}
