package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadySettled is returned when a settlement record already exists for a payment id.
var ErrAlreadySettled = errors.New("payment already settled")

// ErrTxAlreadyClaimed is returned when a ledger transaction has already settled another payment or order.
var ErrTxAlreadyClaimed = errors.New("transaction already used for another payment")

// ErrOrderNotPending is returned when an order update requires a pending order and the order has moved on.
var ErrOrderNotPending = errors.New("order is not pending")
