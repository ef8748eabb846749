package ai

import (
	"context"

	"github.com/udisondev/chessd/internal/chessengine"
)

// Result is delivered on the coordinator's work queue once a move request
// completes (spec §5: "AI-move requests ... return results via the same
// work queue").
type Result struct {
	GameID string
	Move   string
	Err    error
}

// job is one pending AI move request.
type job struct {
	gameID     string
	position   chessengine.Position
	difficulty Difficulty
}

// Pool off-loads AI move requests to a fixed number of workers so a slow
// provider never blocks the coordinator (spec §5 suspension/blocking
// points).
type Pool struct {
	provider MoveProvider
	jobs     chan job
	results  chan<- Result
}

// NewPool starts workerCount goroutines consuming from an internal queue,
// delivering every Result onto results.
func NewPool(ctx context.Context, provider MoveProvider, workerCount int, results chan<- Result) *Pool {
	p := &Pool{
		provider: provider,
		jobs:     make(chan job, 64),
		results:  results,
	}
	for i := 0; i < workerCount; i++ {
		go p.worker(ctx)
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			move, err := p.provider.Propose(ctx, j.position, j.difficulty)
			select {
			case p.results <- Result{GameID: j.gameID, Move: move, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues an AI move request for gameID. Non-blocking up to the
// queue's capacity; a full queue means the pool is overwhelmed, which is
// surfaced by a blocked Submit rather than dropping a game's move silently.
func (p *Pool) Submit(gameID string, pos chessengine.Position, difficulty Difficulty) {
	p.jobs <- job{gameID: gameID, position: pos, difficulty: difficulty}
}
