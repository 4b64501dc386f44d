package v1

import (
	"fmt"
	"time"
)

// Order is one order snapshot as returned by the upstream orders API.
// Timestamps and money stay as the raw strings the API sends; they are parsed
// where they are used so that one malformed field never rejects the snapshot.
type Order struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
	CancelledAt        string         `json:"cancelled_at"`
	Currency           string         `json:"currency"`
	FinancialStatus    string         `json:"financial_status"`
	FulfillmentStatus  string         `json:"fulfillment_status"`
	PaymentGateways    []string       `json:"payment_gateway_names"`
	AppID              *int64         `json:"app_id"`
	Tags               string         `json:"tags"`
	TotalPrice         Amount         `json:"total_price"`
	TotalDiscounts     Amount         `json:"total_discounts"`
	CurrentTotalTax    Amount         `json:"current_total_tax"`
	TotalShippingPrice *PriceSet      `json:"total_shipping_price_set"`
	Customer           *Customer      `json:"customer"`
	DiscountCodes      []DiscountCode `json:"discount_codes"`
	Refunds            []Refund       `json:"refunds"`
	LineItems          []LineItem     `json:"line_items"`
}

type PriceSet struct {
	ShopMoney struct {
		Amount Amount `json:"amount"`
	} `json:"shop_money"`
}

type Customer struct {
	ID int64 `json:"id"`
}

type DiscountCode struct {
	Code   string `json:"code"`
	Amount Amount `json:"amount"`
}

// Refund is one refund record nested in an order. An order carries its full
// refund history in every snapshot.
type Refund struct {
	CreatedAt    string        `json:"created_at"`
	Transactions []Transaction `json:"transactions"`
}

type Transaction struct {
	Amount Amount `json:"amount"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type LineItem struct {
	Title         string   `json:"title"`
	SKU           string   `json:"sku"`
	VariantTitle  string   `json:"variant_title"`
	Price         Amount   `json:"price"`
	Quantity      Quantity `json:"quantity"`
	TotalDiscount Amount   `json:"total_discount"`
	ProductID     *int64   `json:"product_id"`
	VariantID     *int64   `json:"variant_id"`
}

// Validate reports whether the snapshot can be processed at all.
func (o *Order) Validate() error {
	if o.ID <= 0 {
		return fmt.Errorf("id is required")
	}
	return nil
}

// ParseTimestamp parses an upstream timestamp. Empty and malformed values
// report false.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimestampFor returns the snapshot timestamp the feed filters on.
func (o *Order) TimestampFor(feed Feed) (time.Time, bool) {
	if feed == FeedUpdated {
		return ParseTimestamp(o.UpdatedAt)
	}
	return ParseTimestamp(o.CreatedAt)
}
