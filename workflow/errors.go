package workflow

import (
	"fmt"

	"github.com/hupe1980/beanmesh/core"
)

// StepError attributes a failure to the workflow and step it occurred in.
type StepError struct {
	WorkflowID string
	StepID     string
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %q step %q: %v", e.WorkflowID, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UnmatchedBranchError reports a branch input that no case accepts.
type UnmatchedBranchError struct {
	StepID string
	Key    string
}

func (e *UnmatchedBranchError) Error() string {
	return fmt.Sprintf("%v: branch %q has no case for %q", core.ErrUnmatchedBranch, e.StepID, e.Key)
}

func (e *UnmatchedBranchError) Is(target error) bool { return target == core.ErrUnmatchedBranch }
