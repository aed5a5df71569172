package filters

import (
	"context"
	"sort"
	"sync"

	"github.com/valstan/setka/internal/core"
)

// Outcome is the result of running a post through the whole Pipeline.
type Outcome struct {
	Accepted   bool
	RejectedBy string
	Reason     string
	FinalScore float64
}

// StageStats are the per-stage counters spec §4.E requires, reset on
// operator command.
type StageStats struct {
	Checked  int64
	Passed   int64
	Rejected int64
}

// Pipeline runs a fixed, priority-ordered sequence of Stages against a
// post. Equal-priority stages keep their construction order (stable sort),
// satisfying spec invariant #5.
type Pipeline struct {
	stages []Stage
	logger core.Logger

	mu    sync.Mutex
	stats map[string]*StageStats
}

// New builds a Pipeline from an unordered list of stages, sorting them by
// ascending priority with a stable sort.
func New(logger core.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = core.NopLogger{}
	}
	ordered := make([]Stage, len(stages))
	copy(ordered, stages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	stats := make(map[string]*StageStats, len(ordered))
	for _, s := range ordered {
		stats[s.Name()] = &StageStats{}
	}
	return &Pipeline{stages: ordered, logger: logger, stats: stats}
}

// Run evaluates post against every stage in priority order. A rejecting
// stage stops the pipeline and marks the post rejected; a stage that
// errors is treated as passing (fail-open) and the error is logged, per
// spec §4.E's error semantics.
func (p *Pipeline) Run(ctx context.Context, post *core.Post, env *Environment) Outcome {
	for _, stage := range p.stages {
		verdict, err := stage.Check(ctx, post, env)
		stat := p.statFor(stage.Name())

		p.mu.Lock()
		stat.Checked++
		p.mu.Unlock()

		if err != nil {
			p.logger.Warnf("filter stage %s errored, failing open: %v", stage.Name(), err)
			p.mu.Lock()
			stat.Passed++
			p.mu.Unlock()
			continue
		}

		if !verdict.Passed {
			p.mu.Lock()
			stat.Rejected++
			p.mu.Unlock()
			post.Status = core.PostStatusRejected
			return Outcome{Accepted: false, RejectedBy: stage.Name(), Reason: verdict.Reason, FinalScore: post.AIScore}
		}

		p.mu.Lock()
		stat.Passed++
		p.mu.Unlock()
		if verdict.ScoreDelta != 0 {
			post.AIScore = core.ClampScore(post.AIScore + verdict.ScoreDelta)
		}
	}
	return Outcome{Accepted: true, FinalScore: post.AIScore}
}

func (p *Pipeline) statFor(name string) *StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[name]
	if !ok {
		s = &StageStats{}
		p.stats[name] = s
	}
	return s
}

// Stats returns a snapshot of every stage's counters.
func (p *Pipeline) Stats() map[string]StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]StageStats, len(p.stats))
	for name, s := range p.stats {
		out[name] = *s
	}
	return out
}

// ResetStats zeroes every stage's counters, per the operator-command reset
// spec §4.E requires.
func (p *Pipeline) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name := range p.stats {
		p.stats[name] = &StageStats{}
	}
}
