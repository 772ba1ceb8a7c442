package order

import "github.com/example/ec-checkout/internal/domain"

const AggregateType = "Order"

var (
	ErrInvalidUserID       = domain.InvalidArgument("Invalid userId ID")
	ErrInvalidOrderID      = domain.InvalidArgument("Invalid orderId ID")
	ErrInvalidPaymentID    = domain.InvalidArgument("Invalid paymentId ID")
	ErrMissingProperties   = domain.InvalidArgument("Missing required properties in the request body")
	ErrInvalidAddressIndex = domain.InvalidArgument("Invalid userAddressIndex")
	ErrEmptyCart           = domain.InvalidArgument("Cart is empty")
	ErrInvalidStatus       = domain.InvalidArgument("Invalid shipment status")
	ErrCartNotFound        = domain.NotFound("Cart not found for the given user")
	ErrUserNotFound        = domain.NotFound("User does not exist")
	ErrPaymentNotFound     = domain.NotFound("Payment does not exist")
	ErrOrderNotFound       = domain.NotFound("No order found with that id")
)
