// internal/domain/invoice/renderer.go
package invoice

import (
	"strings"
	"time"

	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/domain/pricing"
)

// Placeholder stands in for any missing value on an invoice
const Placeholder = "N/A"

const (
	defaultStoreName = "Q-Mart"
	defaultFooter    = "Thank you for shopping with Q-Mart! Visit us again."
	dateLayout       = "02/01/2006"
)

// Invoices are dated in Indian Standard Time
var ist = time.FixedZone("IST", 5*60*60+30*60)

// Document is a rendered invoice, ready to be serialised as JSON, HTML or PDF
type Document struct {
	StoreName   string        `json:"store_name"`
	Title       string        `json:"title"`
	OrderID     uint          `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	Date        string        `json:"date"`
	Status      string        `json:"status"`
	PaymentMode string        `json:"payment_mode"`
	Shipping    ShippingBlock `json:"shipping"`
	Lines       []Line        `json:"lines"`
	Savings     string        `json:"savings"`
	Total       string        `json:"total"`
	Footer      string        `json:"footer"`
}

// ShippingBlock is the ship-to section. Every field is always filled.
type ShippingBlock struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

// Line is one invoice row
type Line struct {
	No          int    `json:"no"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
	Status      string `json:"status"`
}

// Renderer turns orders into invoice documents
type Renderer struct {
	storeName string
	footer    string
}

// NewRenderer creates a renderer; empty values fall back to the Q-Mart defaults
func NewRenderer(storeName, footer string) *Renderer {
	if storeName == "" {
		storeName = defaultStoreName
	}
	if footer == "" {
		footer = defaultFooter
	}
	return &Renderer{storeName: storeName, footer: footer}
}

// Render builds the invoice for o. It only reads the order.
func (r *Renderer) Render(o *order.Order) *Document {
	doc := &Document{
		StoreName:   r.storeName,
		Title:       "Invoice",
		OrderID:     o.ID,
		OrderNumber: orPlaceholder(o.OrderNumber),
		Date:        Placeholder,
		Status:      orPlaceholder(string(o.Status)),
		PaymentMode: paymentModeLabel(o.PaymentMode),
		Shipping: ShippingBlock{
			Name:        orPlaceholder(o.ShippingAddress.FullName),
			Phone:       orPlaceholder(o.ShippingAddress.Phone),
			AddressLine: orPlaceholder(o.ShippingAddress.AddressLine),
			City:        orPlaceholder(o.ShippingAddress.City),
			State:       orPlaceholder(o.ShippingAddress.State),
			Pincode:     orPlaceholder(o.ShippingAddress.Pincode),
		},
		Lines:   make([]Line, 0, len(o.Items)),
		Savings: Rupees(o.Savings),
		Total:   Rupees(o.Amount),
		Footer:  r.footer,
	}
	if !o.CreatedAt.IsZero() {
		doc.Date = o.CreatedAt.In(ist).Format(dateLayout)
	}

	for i, item := range o.Items {
		doc.Lines = append(doc.Lines, Line{
			No:          i + 1,
			ProductName: orPlaceholder(item.Name),
			Quantity:    item.Quantity,
			UnitPrice:   Rupees(item.Price),
			LineTotal:   Rupees(item.LineTotal()),
			Status:      orPlaceholder(string(item.Status)),
		})
	}

	return doc
}

// Rupees formats paise as a rupee amount with two decimals
func Rupees(paise int64) string {
	return "₹" + pricing.FormatRupees(paise)
}

func paymentModeLabel(mode order.PaymentMode) string {
	switch mode {
	case order.PaymentModeOnline:
		return "Online"
	case order.PaymentModeCashOnDelivery:
		return "Cash on Delivery"
	default:
		return Placeholder
	}
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
