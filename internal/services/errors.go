// internal/services/errors.go
package services

import "errors"

// Capacity errors. Surfaced to the caller; never retried.
var (
	ErrInsufficientEventStock  = errors.New("insufficient_event_stock")
	ErrInsufficientSellerStock = errors.New("insufficient_seller_stock")
	ErrParticipantLimitReached = errors.New("event_participant_limit_reached")
)

// Authorization errors.
var (
	ErrSellerNotAllowed = errors.New("seller_not_allowed")
	ErrWrongOrgForScan  = errors.New("wrong_org_for_scan")
)

// State conflict errors.
var (
	ErrTransactionAlreadyPaid      = errors.New("transaction_already_paid")
	ErrTransactionAlreadyCompleted = errors.New("transaction_already_completed")
	ErrTicketAlreadyUsed           = errors.New("ticket_already_used")
)

// Validation errors.
var (
	ErrInvalidCoupon       = errors.New("invalid_coupon")
	ErrMissingBuyer        = errors.New("missing_buyer_contact")
	ErrUnknownTransaction  = errors.New("unknown_transaction")
	ErrWebhookKindMismatch = errors.New("webhook_kind_mismatch")
	ErrStaleWebhook        = errors.New("stale_webhook")
	ErrUnknownWebhookEvent = errors.New("unknown_webhook_event")
	ErrOrderNotCancelable  = errors.New("order_not_cancelable")
	ErrOrderNotPayable     = errors.New("order_not_payable")
)

// E-ticket verification errors.
var (
	ErrTicketNotFound = errors.New("ticket_not_found")
	ErrInvalidSecret  = errors.New("invalid_secret")
	ErrTicketExpired  = errors.New("ticket_expired")
)
