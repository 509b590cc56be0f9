package spapi

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The marketplace API is inconsistent about key casing: order payloads use
// PascalCase, some report and sandbox payloads camelCase. Decoding probes
// both forms instead of trusting one.

func probe(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func probeString(raw map[string]json.RawMessage, keys ...string) string {
	v, ok := probe(raw, keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func probeInt(raw map[string]json.RawMessage, keys ...string) int {
	v, ok := probe(raw, keys...)
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(v, &n); err != nil {
		return 0
	}
	return n
}

// Money is a currency amount. Amount arrives as a JSON string in order
// payloads and as a number in financial events.
type Money struct {
	CurrencyCode string
	Amount       float64
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.CurrencyCode = probeString(raw, "CurrencyCode", "currencyCode")

	if v, ok := probe(raw, "Amount", "amount", "CurrencyAmount", "currencyAmount"); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return err
			}
			m.Amount = amount
			return nil
		}
		return json.Unmarshal(v, &m.Amount)
	}
	return nil
}

// Order is one marketplace order as returned by the orders endpoint.
type Order struct {
	AmazonOrderID string
	PurchaseDate  time.Time
	OrderStatus   string
	OrderTotal    Money
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.AmazonOrderID = probeString(raw, "AmazonOrderId", "amazonOrderId")
	o.OrderStatus = probeString(raw, "OrderStatus", "orderStatus")

	if v, ok := probe(raw, "PurchaseDate", "purchaseDate"); ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		o.PurchaseDate = parsed.UTC()
	}

	if v, ok := probe(raw, "OrderTotal", "orderTotal"); ok {
		if err := json.Unmarshal(v, &o.OrderTotal); err != nil {
			return err
		}
	}
	return nil
}

// OrderItem is one line of an order as returned by the order items endpoint.
type OrderItem struct {
	OrderItemID       string
	ASIN              string
	SellerSKU         string
	QuantityOrdered   int
	QuantityShipped   int
	ItemPrice         Money
	PromotionDiscount Money
}

func (i *OrderItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	i.OrderItemID = probeString(raw, "OrderItemId", "orderItemId")
	i.ASIN = probeString(raw, "ASIN", "Asin", "asin")
	i.SellerSKU = probeString(raw, "SellerSKU", "sellerSku")
	i.QuantityOrdered = probeInt(raw, "QuantityOrdered", "quantityOrdered")
	i.QuantityShipped = probeInt(raw, "QuantityShipped", "quantityShipped")

	if v, ok := probe(raw, "ItemPrice", "itemPrice"); ok {
		if err := json.Unmarshal(v, &i.ItemPrice); err != nil {
			return err
		}
	}
	if v, ok := probe(raw, "PromotionDiscount", "promotionDiscount"); ok {
		if err := json.Unmarshal(v, &i.PromotionDiscount); err != nil {
			return err
		}
	}
	return nil
}

// ListOrdersPayload is the paged orders result.
type ListOrdersPayload struct {
	Orders    []Order
	NextToken string
}

func (p *ListOrdersPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := probe(raw, "Orders", "orders"); ok {
		if err := json.Unmarshal(v, &p.Orders); err != nil {
			return err
		}
	}
	p.NextToken = probeString(raw, "NextToken", "nextToken")
	return nil
}

// ListOrderItemsPayload is the paged order items result.
type ListOrderItemsPayload struct {
	AmazonOrderID string
	OrderItems    []OrderItem
	NextToken     string
}

func (p *ListOrderItemsPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.AmazonOrderID = probeString(raw, "AmazonOrderId", "amazonOrderId")
	if v, ok := probe(raw, "OrderItems", "orderItems"); ok {
		if err := json.Unmarshal(v, &p.OrderItems); err != nil {
			return err
		}
	}
	p.NextToken = probeString(raw, "NextToken", "nextToken")
	return nil
}

// FeeComponent is a single fee charge inside a financial event. FeeAmount is
// negative for charges.
type FeeComponent struct {
	FeeType   string
	FeeAmount Money
}

func (f *FeeComponent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.FeeType = probeString(raw, "FeeType", "feeType")
	if v, ok := probe(raw, "FeeAmount", "feeAmount"); ok {
		if err := json.Unmarshal(v, &f.FeeAmount); err != nil {
			return err
		}
	}
	return nil
}

// ShipmentItem carries the fee lists for one order item within a shipment or
// refund event.
type ShipmentItem struct {
	OrderItemID           string
	SellerSKU             string
	ItemFeeList           []FeeComponent
	ItemFeeAdjustmentList []FeeComponent
}

func (s *ShipmentItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.OrderItemID = probeString(raw, "OrderItemId", "orderItemId", "OrderAdjustmentItemId", "orderAdjustmentItemId")
	s.SellerSKU = probeString(raw, "SellerSKU", "sellerSku")
	if v, ok := probe(raw, "ItemFeeList", "itemFeeList"); ok {
		if err := json.Unmarshal(v, &s.ItemFeeList); err != nil {
			return err
		}
	}
	if v, ok := probe(raw, "ItemFeeAdjustmentList", "itemFeeAdjustmentList"); ok {
		if err := json.Unmarshal(v, &s.ItemFeeAdjustmentList); err != nil {
			return err
		}
	}
	return nil
}

// ShipmentEvent groups the per-item fees charged when (part of) an order
// shipped or was refunded.
type ShipmentEvent struct {
	AmazonOrderID    string
	ShipmentItemList []ShipmentItem
}

func (e *ShipmentEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.AmazonOrderID = probeString(raw, "AmazonOrderId", "amazonOrderId")
	if v, ok := probe(raw, "ShipmentItemList", "shipmentItemList", "ShipmentItemAdjustmentList", "shipmentItemAdjustmentList"); ok {
		if err := json.Unmarshal(v, &e.ShipmentItemList); err != nil {
			return err
		}
	}
	return nil
}

// FinancialEvents is the slice of event lists the fee sync cares about.
type FinancialEvents struct {
	ShipmentEventList []ShipmentEvent
	RefundEventList   []ShipmentEvent
}

func (f *FinancialEvents) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := probe(raw, "ShipmentEventList", "shipmentEventList"); ok {
		if err := json.Unmarshal(v, &f.ShipmentEventList); err != nil {
			return err
		}
	}
	if v, ok := probe(raw, "RefundEventList", "refundEventList"); ok {
		if err := json.Unmarshal(v, &f.RefundEventList); err != nil {
			return err
		}
	}
	return nil
}

// Report metadata from the reports endpoint (consistently camelCase).
type Report struct {
	ReportID         string `json:"reportId"`
	ReportType       string `json:"reportType"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
	DataStartTime    string `json:"dataStartTime"`
	DataEndTime      string `json:"dataEndTime"`
}

// ReportDocument describes where to download a finished report.
type ReportDocument struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}
