package pipeline

import "fmt"

// Stage names the step a failure came from.
type Stage string

const (
	StageAcquire   Stage = "acquire"
	StageSelect    Stage = "select"
	StageAggregate Stage = "aggregate"
	StageAssemble  Stage = "assemble"
	StageGenerate  Stage = "generate"
	StageValidate  Stage = "validate"
)

// StageError wraps the error of a failed stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
