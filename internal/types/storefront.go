package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ====== ENUMS ======

type Size string

const (
	SizeS    Size = "S"
	SizeM    Size = "M"
	SizeL    Size = "L"
	SizeXL   Size = "XL"
	SizeXXL  Size = "XXL"
	SizeXXXL Size = "XXXL"
)

// Sizes lists every size in display order.
var Sizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL}

func (s Size) Valid() bool {
	for _, known := range Sizes {
		if s == known {
			return true
		}
	}
	return false
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// ====== CORE TYPES ======

// CartItems maps a product id to a positive quantity.
type CartItems map[string]int

// Clone returns an independent copy; a nil receiver yields an empty map.
func (c CartItems) Clone() CartItems {
	out := make(CartItems, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

type SizeStock struct {
	Size     Size `json:"size"`
	Quantity int  `json:"quantity"`
}

type Variant struct {
	ColorName string      `json:"colorName"`
	ColorCode string      `json:"colorCode,omitempty"`
	Pattern   string      `json:"pattern,omitempty"`
	Images    []string    `json:"images,omitempty"`
	Sizes     []SizeStock `json:"sizes,omitempty"`
	InStock   *bool       `json:"inStock,omitempty"`
}

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description []string        `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	OfferPrice  decimal.Decimal `json:"offerPrice"`
	InStock     *bool           `json:"inStock,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
}

// UnmarshalJSON accepts the legacy product shapes: a singular "image"
// array, a plain string description, and a missing offer price (which
// falls back to the listed price).
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var raw struct {
		plain
		Description json.RawMessage  `json:"description,omitempty"`
		Image       []string         `json:"image,omitempty"`
		OfferPrice  *decimal.Decimal `json:"offerPrice,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw.plain)

	if len(p.Images) == 0 && len(raw.Image) > 0 {
		p.Images = raw.Image
	}

	p.Description = nil
	if len(raw.Description) > 0 {
		var lines []string
		if err := json.Unmarshal(raw.Description, &lines); err == nil {
			p.Description = lines
		} else {
			var single string
			if err := json.Unmarshal(raw.Description, &single); err == nil && single != "" {
				p.Description = []string{single}
			}
		}
	}

	if raw.OfferPrice != nil {
		p.OfferPrice = *raw.OfferPrice
	} else {
		p.OfferPrice = p.Price
	}
	return nil
}

type Category struct {
	ID      string  `json:"_id"`
	Text    string  `json:"text"`
	Path    string  `json:"path"`
	BgColor string  `json:"bgColor,omitempty"`
	Image   string  `json:"image,omitempty"`
	Parent  *string `json:"parent,omitempty"`
}

// UnmarshalJSON folds the admin-side "name"/"slug" spelling into Text/Path
// and treats an empty parent string as no parent.
func (c *Category) UnmarshalJSON(data []byte) error {
	type plain Category
	var raw struct {
		plain
		Name string `json:"name,omitempty"`
		Slug string `json:"slug,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category(raw.plain)
	if c.Text == "" {
		c.Text = raw.Name
	}
	if c.Path == "" {
		c.Path = raw.Slug
	}
	if c.Parent != nil && *c.Parent == "" {
		c.Parent = nil
	}
	return nil
}

// ParentID returns the parent reference or "" for a root record.
func (c Category) ParentID() string {
	if c.Parent == nil {
		return ""
	}
	return *c.Parent
}

// CategoryInput is the payload of the seller add and edit calls. A nil
// Parent makes a main category.
type CategoryInput struct {
	Text    string  `json:"text"`
	Path    string  `json:"path"`
	BgColor string  `json:"bgColor,omitempty"`
	Image   string  `json:"image,omitempty"`
	Parent  *string `json:"parent"`
}

type Address struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode,omitempty"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CartItems CartItems `json:"cartItems,omitempty"`
}

type Coupon struct {
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinCartAmount decimal.Decimal `json:"minCartAmount"`
	ExpiresAt     time.Time       `json:"expiryDate"`
}

type OrderItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	UserID     string           `json:"userId"`
	Items      []OrderItem      `json:"items"`
	Address    string           `json:"address"`
	CouponCode *string          `json:"couponCode"`
	PaymentID  string           `json:"paymentId,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

type Order struct {
	ID          string          `json:"_id"`
	Items       []OrderItem     `json:"items"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	PaymentType string          `json:"paymentType"`
	IsPaid      bool            `json:"isPaid"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// ====== REQUEST / RESPONSE TYPES ======

type ErrorResponse struct {
	Error     string                 `json:"error"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
