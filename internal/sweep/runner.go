package sweep

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	dex "stakesweep-go/internal/dex/solana"
	"stakesweep-go/internal/metrics"
	"stakesweep-go/internal/report"
)

// DefaultInterval is the pause between passes when none is configured.
const DefaultInterval = 200 * time.Millisecond

// Submitter sends one signed bundle and returns its signature.
type Submitter interface {
	Submit(ctx context.Context, instructions []solana.Instruction, feePayer, owner dex.Identity) (solana.Signature, error)
}

// Runner sweeps the targets of a validated Setup, one at a time, forever or until
// MaxPasses is reached.
type Runner struct {
	setup     *Setup
	submitter Submitter
	recorder  report.Recorder
	pass      *report.Ledger
	log       zerolog.Logger
	interval  time.Duration
	maxPasses int
	now       func() time.Time

	submitted int
	failed    int
}

// Option configures Runner construction parameters.
type Option func(*Runner)

// WithInterval overrides the pause between passes.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxPasses stops Run after n passes; n <= 0 runs until the context ends.
func WithMaxPasses(n int) Option {
	return func(r *Runner) { r.maxPasses = n }
}

// WithRecorder adds an outcome sink.
func WithRecorder(rec report.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner wires a validated setup to a submitter.
func NewRunner(setup *Setup, submitter Submitter, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		setup:     setup,
		submitter: submitter,
		recorder:  report.Tee(),
		pass:      report.NewLedger(len(setup.Targets)),
		log:       log,
		interval:  DefaultInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PassSummary describes one sweep over the target list.
type PassSummary struct {
	ID        string
	Pass      int
	Submitted int
	Failed    int
	Outcomes  []report.Outcome
	Duration  time.Duration
}

// Run loops over the targets until ctx is done or the pass limit is reached.
func (r *Runner) Run(ctx context.Context) error {
	for pass := 1; ; pass++ {
		r.RunPass(ctx, pass)
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.maxPasses > 0 && pass >= r.maxPasses {
			return nil
		}
		select {
		case <-time.After(r.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunPass processes every target once, in configured order. A failing target is
// reported and skipped; it is retried on the next pass.
func (r *Runner) RunPass(ctx context.Context, pass int) PassSummary {
	start := r.now()
	summary := PassSummary{ID: uuid.NewString(), Pass: pass}
	log := r.log.With().Str("pass_id", summary.ID).Int("pass", pass).Logger()
	r.pass.Reset()
	rec := report.Tee(r.recorder, r.pass)

	for _, t := range r.setup.Targets {
		if ctx.Err() != nil {
			break
		}
		outcome := r.process(ctx, t)
		outcome.PassID = summary.ID
		outcome.Pass = pass
		rec.Record(outcome)

		if outcome.OK() {
			log.Info().Int("target", t.Index).Str("owner", outcome.Owner).Uint64("amount", t.Amount).Str("signature", outcome.Signature).Msg("submitted")
		} else {
			log.Error().Int("target", t.Index).Str("owner", outcome.Owner).Uint64("amount", t.Amount).Str("error", outcome.Error).Msg("submission failed")
		}
	}

	summary.Outcomes = r.pass.Snapshot()
	summary.Submitted, summary.Failed = r.pass.Counts()
	summary.Duration = r.now().Sub(start)
	r.submitted += summary.Submitted
	r.failed += summary.Failed
	metrics.PassesTotal.Inc()
	metrics.LastPassTimestamp.Set(float64(r.now().Unix()))
	log.Info().Int("submitted", summary.Submitted).Int("failed", summary.Failed).Dur("took", summary.Duration).Msg("pass complete")
	return summary
}

// Totals returns submissions accepted and failed across every pass run so far. It must not
// be called while Run is active.
func (r *Runner) Totals() (submitted, failed int) {
	return r.submitted, r.failed
}

func (r *Runner) process(ctx context.Context, t Target) report.Outcome {
	outcome := report.Outcome{
		Index:  t.Index,
		Owner:  t.Owner.PublicKey.String(),
		Amount: t.Amount,
		Ts:     r.now(),
	}
	plan, err := r.setup.Plan(t)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	sig, err := r.submitter.Submit(ctx, plan.Instructions, r.setup.FeePayer, t.Owner)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Signature = sig.String()
	return outcome
}
