package levels

import "errors"

// ErrLevelOutOfRange is returned when an update would move a level past the
// configured cap.
var ErrLevelOutOfRange = errors.New("level out of range")
