package channel

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelEmpty = errors.New(f("channel empty"))
	ErrChannelFull  = errors.New(f("channel full"))
)

// ErrParseValue indicates a tape token that is not a decimal integer.
type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("tape value '%v' is not a number", string(err))
}
