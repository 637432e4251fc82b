package tasks

import "errors"

var (
	ErrNotFound    = errors.New("task not found")
	ErrTerminal    = errors.New("task already finished")
	ErrNotRunning  = errors.New("task not running")
	ErrValidation  = errors.New("validation error")
	ErrUnknownKind = errors.New("unknown task kind")
)

// Failure lets a handler pick the code and message recorded on the task.
type Failure struct {
	Code    string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Fail wraps err with a user-facing code and message.
func Fail(code, message string, err error) error {
	return &Failure{Code: code, Message: message, Err: err}
}
