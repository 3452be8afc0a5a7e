package exchange

import "errors"

var (
	errMissingSymbol    = errors.New("missing symbol")
	errInvalidSide      = errors.New("invalid side")
	errNonPositivePrice = errors.New("price must be positive")
	errNonPositiveQty   = errors.New("quantity must be positive")
	errMissingOrderID   = errors.New("missing orderID")
)
