package execution

import (
	"testing"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/stretchr/testify/require"

	"github.com/apex-evals/apexeval/internal/utils"
)

func TestSessionCollector(t *testing.T) {
	coll := newSessionCollector()

	coll.On(copilot.SessionEvent{
		Type: copilot.AssistantMessageDelta,
		Data: copilot.Data{Content: utils.Ptr("hello ")},
	})
	coll.On(copilot.SessionEvent{
		Type: copilot.AssistantMessageDelta,
		Data: copilot.Data{Content: utils.Ptr("world")},
	})
	coll.On(copilot.SessionEvent{
		Type: copilot.AssistantMessage,
		Data: copilot.Data{},
	})
	coll.On(copilot.SessionEvent{
		Type: copilot.ToolExecutionStart,
	})

	select {
	case <-coll.Done():
		require.Fail(t, "Should not be Done() before a termination event")
	default:
	}

	coll.On(copilot.SessionEvent{Type: copilot.SessionIdle})

	select {
	case <-coll.Done():
	default:
		require.Fail(t, "Should have been Done()")
	}

	require.Equal(t, "hello world", coll.Output())
	require.Empty(t, coll.ErrorMessage())
}

func TestSessionCollector_Error(t *testing.T) {
	tests := []struct {
		Message  *string
		Expected string
	}{
		{Message: utils.Ptr(""), Expected: sessionFailedUnknown},
		{Message: nil, Expected: sessionFailedUnknown},
		{Message: utils.Ptr("an error message"), Expected: "an error message"},
	}

	for _, tc := range tests {
		coll := newSessionCollector()

		coll.On(copilot.SessionEvent{
			Type: copilot.SessionError,
			Data: copilot.Data{
				Message: tc.Message,
			},
		})

		require.Equal(t, tc.Expected, coll.ErrorMessage())

		select {
		case <-coll.Done():
		default:
			require.Fail(t, "Should have been Done()")
		}
	}
}

func TestSessionCollector_IdleTwice(t *testing.T) {
	coll := newSessionCollector()

	// a second termination event must not panic on the closed channel
	coll.On(copilot.SessionEvent{Type: copilot.SessionIdle})
	coll.On(copilot.SessionEvent{Type: copilot.SessionIdle})

	select {
	case <-coll.Done():
	default:
		require.Fail(t, "Should have been Done()")
	}
}
