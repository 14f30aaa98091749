package subscription

import (
	"errors"
	"fmt"
)

// Protocol-state errors delivered to delegates and completions.
var (
	ErrUnsubscribeCalledWhileSubscribing = errors.New("unsubscribe called while subscribing")
	ErrEndedWhileNotSubscribed           = errors.New("subscription ended while not subscribed")
	ErrEndedWhileSubscribing             = errors.New("subscription ended while subscribing")
	ErrEndedWhileSubscribed              = errors.New("subscription ended while subscribed")
)

// EndError reports an end-of-stream along with what the server sent.
// Unwraps to one of the ErrEndedWhile* sentinels.
type EndError struct {
	Err        error
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (e *EndError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
	}
	return e.Err.Error()
}

func (e *EndError) Unwrap() error {
	return e.Err
}

// IsEnd returns true if err reports an end-of-stream.
func IsEnd(err error) bool {
	var endErr *EndError
	return errors.As(err, &endErr)
}
