package core

import "sync"

// ErrorFunc is invoked synchronously at the point of failure.
type ErrorFunc func(userData any, code Code, message string)

// ErrorState is a latched (code, message) pair. The first failure is kept
// until it is queried; later failures only reach the callback.
type ErrorState struct {
	mu       sync.Mutex
	code     Code
	message  string
	fn       ErrorFunc
	userData any
}

func (s *ErrorState) record(code Code, message string) (ErrorFunc, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == None {
		s.code = code
		s.message = message
	}
	return s.fn, s.userData
}

func (s *ErrorState) take() (Code, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, message := s.code, s.message
	s.code = None
	s.message = ""
	return code, message
}

// globalError holds failures that have no device context.
var globalError ErrorState

// SetError latches a failure on dev, or on the global slot when dev is nil,
// and invokes the device's error callback.
func SetError(dev Device, code Code, message string) {
	state := &globalError
	verbose := 0
	if dev != nil {
		state = dev.ErrorState()
		verbose = dev.Verbose()
	}

	fn, userData := state.record(code, message)
	if verbose >= 1 {
		Logger().Warn("error", "code", code.String(), "message", message)
	}
	if fn != nil {
		fn(userData, code, message)
	}
}

// GetError returns and clears the latched error of dev, or of the global
// slot when dev is nil.
func GetError(dev Device) (Code, string) {
	if dev == nil {
		return globalError.take()
	}
	return dev.ErrorState().take()
}
