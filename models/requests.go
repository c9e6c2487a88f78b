package models

// SaveCartRequest is the save-cart payload. Token is optional; a blank
// token makes the server mint one.
type SaveCartRequest struct {
	Token    string     `json:"token"`
	Email    string     `json:"email" binding:"required,email"`
	Items    []PlanItem `json:"items" binding:"required,min=1,dive"`
	Currency string     `json:"currency"`
}

type SaveCartResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

type MarkConvertedRequest struct {
	Token string `json:"token" binding:"required"`
}

type SubmitReviewRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Title         string `json:"title" binding:"max=255"`
	Body          string `json:"body"`
}

type SubmitReviewResponse struct {
	OK                 bool   `json:"ok"`
	DiscountCode       string `json:"discount_code"`
	DiscountPercentOff int    `json:"discount_percent_off"`
}

type RedeemDiscountRequest struct {
	Code          string `json:"code" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	// TotalCents, when supplied, asks the server to price the discount
	// for this checkout total.
	TotalCents *int64 `json:"total_cents" binding:"omitempty,min=0"`
}

type RedeemDiscountResponse struct {
	OK                   bool   `json:"ok"`
	PercentOff           int    `json:"percent_off"`
	DiscountAmountCents  *int64 `json:"discount_amount_cents,omitempty"`
	DiscountedTotalCents *int64 `json:"discounted_total_cents,omitempty"`
}
