package transport

import "github.com/google/uuid"

// SubmitQuoteRequest is the request body a provider sends with a quote.
type SubmitQuoteRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,min=1"`
	Description string `json:"description" validate:"max=5000"`
}

// AcceptQuoteRequest selects the winning quote of an intervention.
type AcceptQuoteRequest struct {
	QuoteID uuid.UUID `json:"quoteId" validate:"required"`
}

// RejectQuoteRequest declines a single quote.
type RejectQuoteRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
