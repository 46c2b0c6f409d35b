package editor

import "time"

// SetAfterFunc replaces the timer constructor of the checking class.
func SetAfterFunc(s *Session, fn func(time.Duration, func()) *time.Timer) {
	s.afterFunc = fn
}
