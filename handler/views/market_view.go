package views

import (
	"cdplend/core"
)

// Market market overview
type Market struct {
	*core.MarketStats
	Config core.MarketConfig    `json:"config"`
	Status core.OperatingStatus `json:"status"`
}
