package usage

import "errors"

// ErrLimitReached indicates the user has no generations left this period.
var ErrLimitReached = errors.New("usage limit reached")
