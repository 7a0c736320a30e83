package worker

import (
	"github.com/simgate/sim-gateway/internal/service"
)

// StartOutcomeWorker registers the outcome consumers on the dispatcher.
func StartOutcomeWorker(outcomeService *service.OutcomeService) {
	if outcomeService == nil {
		return
	}
	outcomeService.RegisterHandlers()
}
