package model

type ResultStatus int

const (
	ResultOK ResultStatus = iota
	ResultEmpty
	ResultFailed
)

func (s ResultStatus) String() string {
	switch s {
	case ResultOK:
		return "ok"
	case ResultEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result separates a legitimately empty outcome from a failed one.
// Value may be set on failure when the component has a fallback for it.
type Result[T any] struct {
	Status ResultStatus
	Value  T
	Err    error
}

func OK[T any](v T) Result[T] { return Result[T]{Status: ResultOK, Value: v} }

func Empty[T any]() Result[T] { return Result[T]{Status: ResultEmpty} }

func Failed[T any](err error) Result[T] { return Result[T]{Status: ResultFailed, Err: err} }

func (r Result[T]) IsOK() bool     { return r.Status == ResultOK }
func (r Result[T]) IsEmpty() bool  { return r.Status == ResultEmpty }
func (r Result[T]) IsFailed() bool { return r.Status == ResultFailed }
