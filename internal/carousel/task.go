package carousel

import (
	"fmt"
	"time"

	"github.com/valstan/setka/internal/core"
)

// legalTransitions enforces the linear, terminal state machine of spec
// §4.H: queued -> running -> completed | failed.
var legalTransitions = map[core.CarouselTaskState][]core.CarouselTaskState{
	core.TaskQueued:  {core.TaskRunning},
	core.TaskRunning: {core.TaskCompleted, core.TaskFailed},
}

// Transition moves task to next, rejecting any transition that is not in
// legalTransitions or that originates from a terminal state.
func Transition(task *core.CarouselTask, next core.CarouselTaskState, at time.Time) error {
	if task.State.IsTerminal() {
		return fmt.Errorf("carousel task %d: state %s is terminal", task.ID, task.State)
	}
	allowed := legalTransitions[task.State]
	ok := false
	for _, s := range allowed {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("carousel task %d: illegal transition %s -> %s", task.ID, task.State, next)
	}

	task.State = next
	switch next {
	case core.TaskRunning:
		task.StartedAt = &at
	case core.TaskCompleted, core.TaskFailed:
		task.FinishedAt = &at
	}
	return nil
}

// Fail transitions task to failed with reason, and additionally excludes
// the bound credential from future selection if the failure was a token
// invalidation (spec §4.H: "marked validation_status=invalid and excluded
// from selection until revalidated").
func Fail(task *core.CarouselTask, credential *core.Credential, reason string, at time.Time) error {
	task.ErrorMessage = reason
	if err := Transition(task, core.TaskFailed, at); err != nil {
		return err
	}
	if reason == TokenInvalidReason && credential != nil {
		credential.Status = core.CredentialStatusInvalid
		credential.ErrorMessage = reason
	}
	return nil
}
