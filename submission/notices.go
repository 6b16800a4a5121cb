package submission

import (
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/notify"
)

func notifyNoResponse(t interrupt.ResponseType) notify.Notice {
	return notify.Error("No response found", "The draft has no "+string(t)+" response to submit.")
}

func notifyNotSubmittable(t interrupt.ResponseType) notify.Notice {
	if t == "" {
		return notify.Error("Nothing to submit", "This interrupt only allows ignoring it.")
	}
	return notify.Error("Cannot submit response", "A "+string(t)+" response is not submitted this way.")
}

func notifyStreamError(payload string) notify.Notice {
	return notify.Error("Error while streaming run", payload)
}

func notifyRefreshFailed(err error) notify.Notice {
	return notify.Error("Failed to refresh thread", err.Error())
}
