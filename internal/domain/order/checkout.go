package order

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// CheckoutState is a step of order materialization.
type CheckoutState int

const (
	CheckoutPending CheckoutState = iota
	CheckoutStockReserved
	CheckoutCommitted
	CheckoutRolledBack
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutPending:
		return "pending"
	case CheckoutStockReserved:
		return "stock_reserved"
	case CheckoutCommitted:
		return "committed"
	case CheckoutRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("CheckoutState(%d)", int(s))
}

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutPending:       {CheckoutStockReserved, CheckoutRolledBack},
	CheckoutStockReserved: {CheckoutCommitted, CheckoutRolledBack},
	CheckoutCommitted:     {}, // terminal state
	CheckoutRolledBack:    {}, // terminal state
}

// checkout tracks one CreateOrder call. The order is committed only from
// StockReserved, so a checkout that never took stock can only roll back.
type checkout struct {
	state   CheckoutState
	orderID string
	log     logrus.FieldLogger
}

func newCheckout(orderID string, log logrus.FieldLogger) *checkout {
	return &checkout{state: CheckoutPending, orderID: orderID, log: log}
}

func (c *checkout) advance(to CheckoutState) error {
	for _, allowed := range checkoutTransitions[c.state] {
		if allowed == to {
			c.log.WithFields(logrus.Fields{
				"order_id": c.orderID,
				"from":     c.state.String(),
				"to":       to.String(),
			}).Debug("checkout state changed")
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("checkout %s: cannot move from %s to %s", c.orderID, c.state, to)
}

// rollback moves a non-terminal checkout to RolledBack.
func (c *checkout) rollback() {
	if c.state == CheckoutPending || c.state == CheckoutStockReserved {
		_ = c.advance(CheckoutRolledBack)
	}
}
