package pricing

import "errors"

var (
	ErrInvalidItem         = errors.New("invalid line item")
	ErrEmptyOrder          = errors.New("order has no priceable items")
	ErrMissingCoordinates  = errors.New("delivery coordinates are required")
	ErrOutsideDeliveryArea = errors.New("address is outside the delivery area")
)
