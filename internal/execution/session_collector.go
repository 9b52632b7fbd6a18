package execution

import (
	copilot "github.com/github/copilot-sdk/go"
)

const sessionFailedUnknown = "session failed with unknown error"

// sessionCollector accumulates assistant output from session events until a
// termination event arrives.
type sessionCollector struct {
	outputParts []string
	errorMsg    string
	done        chan struct{}
}

func newSessionCollector() *sessionCollector {
	return &sessionCollector{
		done: make(chan struct{}),
	}
}

// Output returns the assistant text collected so far.
func (coll *sessionCollector) Output() string {
	return joinStrings(coll.outputParts)
}

// ErrorMessage returns the error message, if any.
func (coll *sessionCollector) ErrorMessage() string {
	return coll.errorMsg
}

// Done returns the channel that is closed when the session completes.
func (coll *sessionCollector) Done() <-chan struct{} {
	return coll.done
}

// On is a callback, intended to be passed to [copilot.Session.On] to receive
// events in real-time.
func (coll *sessionCollector) On(event copilot.SessionEvent) {
	switch event.Type {
	case copilot.AssistantMessage, copilot.AssistantMessageDelta:
		if event.Data.Content != nil {
			coll.outputParts = append(coll.outputParts, *event.Data.Content)
		}

	// these are both termination events
	case copilot.SessionIdle, copilot.SessionError:
		if event.Type == copilot.SessionError {
			if event.Data.Message == nil || *event.Data.Message == "" {
				coll.errorMsg = sessionFailedUnknown
			} else {
				coll.errorMsg = *event.Data.Message
			}
		}

		select {
		case <-coll.done:
		default:
			close(coll.done)
		}
	}
}
