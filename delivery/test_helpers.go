package delivery

import "github.com/stretchr/testify/mock"

// MatchAttempt creates a custom matcher for attempt requests in mocks
func MatchAttempt(matcher func(AttemptRequest) bool) interface{} {
	return mock.MatchedBy(matcher)
}
