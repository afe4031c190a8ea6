package views

import (
	"cdplend/core"
	"cdplend/service/health"
)

// CDP cdp view with its group health
type CDP struct {
	*core.CDP
	Health *health.Health `json:"health,omitempty"`
}
