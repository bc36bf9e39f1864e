// Package pipeline implements the claim-processing pipeline controller: a
// fixed stage graph with a single branch point after validation, driving a
// ClaimRecord from raw input to a terminal decision. Collaborator failures
// degrade to documented sentinels; every run terminates with a decision.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimgate/internal/llm"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/store"
	"github.com/ppiankov/claimgate/internal/worker"
)

// Pipeline executes the claim stage graph over one record at a time.
// A single Pipeline is safe for concurrent runs: it holds only
// configuration and shared collaborator handles.
type Pipeline struct {
	provider  llm.Provider
	retriever store.Retriever
	limiter   *worker.Limiter
	cfg       *model.Config
	topK      int
	logger    *zap.Logger
}

// New creates a pipeline with explicitly injected collaborators. Either
// collaborator may be nil; the affected stages then degrade to their
// sentinel outputs.
func New(provider llm.Provider, retriever store.Retriever, limiter *worker.Limiter, cfg *model.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}

	return &Pipeline{
		provider:  provider,
		retriever: retriever,
		limiter:   limiter,
		cfg:       cfg,
		topK:      cfg.Store.TopK,
		logger:    logger,
	}
}

// ProviderName returns the completion provider name, "" when disabled
func (p *Pipeline) ProviderName() string {
	if p.provider == nil {
		return ""
	}
	return p.provider.Name()
}

// ModelName returns the configured completion model
func (p *Pipeline) ModelName() string {
	return p.cfg.LLM.Model
}

// Process creates a record for the raw submission and runs it to a
// terminal state
func (p *Pipeline) Process(ctx context.Context, rawInput string) (*model.ClaimRecord, error) {
	rec := model.NewClaimRecord(rawInput)
	if err := p.Run(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Run drives the record through the stage graph until a terminal stage.
// Invoking Run on a terminal record is a state misuse error. Cancellation
// is observed at stage boundaries: an in-flight collaborator call finishes
// under its own stage timeout, but no further stage starts.
func (p *Pipeline) Run(ctx context.Context, rec *model.ClaimRecord) error {
	current := Stage(rec.CurrentStage)
	if !current.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStage, rec.CurrentStage)
	}
	if current.IsTerminal() {
		return fmt.Errorf("%w (stage %s)", ErrTerminalState, current)
	}

	p.logger.Info("claim run started", zap.String("stage", current.String()))

	for !current.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled at stage %s: %w", current, err)
		}

		next, err := Next(current, rec.Valid())
		if err != nil {
			return err
		}

		p.runStage(ctx, next, rec)
		rec.CurrentStage = next.String()
		current = next

		p.logger.Info("stage complete",
			zap.String("claim_id", rec.ClaimID),
			zap.String("stage", current.String()))
	}

	rec.CompletedAt = time.Now().UTC()
	p.logger.Info("claim run complete",
		zap.String("claim_id", rec.ClaimID),
		zap.String("final_decision", string(rec.FinalDecision)))
	return nil
}

// runStage executes one stage under the configured per-stage timeout
func (p *Pipeline) runStage(ctx context.Context, stage Stage, rec *model.ClaimRecord) {
	stageCtx := ctx
	if p.cfg.Pipeline.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.cfg.Pipeline.StageTimeout)
		defer cancel()
	}

	switch stage {
	case StageParsed:
		p.parseClaim(stageCtx, rec)
	case StageValidated:
		p.validateClaim(stageCtx, rec)
	case StageQueriesGenerated:
		p.generateQueries(stageCtx, rec)
	case StagePolicyRetrieved:
		p.retrievePolicy(stageCtx, rec)
	case StageRecommended:
		p.generateRecommendation(stageCtx, rec)
	case StagePriceChecked:
		p.priceCheck(rec)
	case StageFinalized:
		p.finalizeDecision(stageCtx, rec)
	case StageRejected:
		p.rejectClaim(rec)
	}
}

// complete gates admission through the shared limiter and calls the
// completion provider
func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	if p.provider == nil {
		return "", fmt.Errorf("no completion provider configured")
	}

	if err := p.limiter.Wait(ctx, p.provider.Name()); err != nil {
		return "", fmt.Errorf("rate limit admission: %w", err)
	}

	resp, err := p.provider.Complete(ctx, llm.CompleteRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
