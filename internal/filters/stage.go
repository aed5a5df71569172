// Package filters implements the ordered Filter Pipeline of spec §4.E: a
// fixed sequence of filter stages that each vote pass/reject on a post and
// may nudge its score. Per the redesign note in spec §9, stages are reified
// as a single interface carrying {name, priority, kind} plus a pure check
// function; there is no base-class hierarchy of pure/store/expensive stages.
package filters

import (
	"context"

	"github.com/valstan/setka/internal/core"
)

// Kind classifies a Stage by the side effects of its Check, purely for
// statistics and cache-invalidation bookkeeping; it does not change
// pipeline control flow.
type Kind string

const (
	KindPure  Kind = "pure"
	KindStore Kind = "store"
)

// Verdict is the outcome of a single stage evaluating one post.
type Verdict struct {
	Passed     bool
	Reason     string
	ScoreDelta float64
}

// Pass returns a passing verdict with an optional score delta.
func Pass(delta float64) Verdict {
	return Verdict{Passed: true, ScoreDelta: delta}
}

// Reject returns a failing verdict carrying reason.
func Reject(reason string) Verdict {
	return Verdict{Passed: false, Reason: reason}
}

// Stage is one filter in the pipeline: a name, a fixed priority (lower runs
// first), a Kind for bookkeeping, and the check itself.
type Stage interface {
	Name() string
	Priority() int
	Kind() Kind
	Check(ctx context.Context, post *core.Post, env *Environment) (Verdict, error)
}

// baseStage is embedded by concrete stages to supply Name/Priority/Kind
// without repeating the boilerplate in every stage type.
type baseStage struct {
	name     string
	priority int
	kind     Kind
}

func (b baseStage) Name() string   { return b.name }
func (b baseStage) Priority() int  { return b.priority }
func (b baseStage) Kind() Kind     { return b.kind }
