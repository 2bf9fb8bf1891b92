package storefront

import (
	"github.com/Conversly/storefront/internal/catalog"
	"github.com/Conversly/storefront/internal/category"
	"github.com/Conversly/storefront/internal/checkout"
	"github.com/Conversly/storefront/internal/types"
	"github.com/shopspring/decimal"
)

// Request DTOs
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CouponRequest struct {
	Code string `json:"code"`
}

// Response DTOs
type CartResponse struct {
	Items   types.CartItems `json:"items"`
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
	Version uint64          `json:"version"`
}

type ProductResponse struct {
	Product types.Product   `json:"product"`
	Variant int             `json:"variant"`
	InStock bool            `json:"inStock"`
	Sizes   []types.Size    `json:"sizes"`
	Images  []string        `json:"images"`
	Related []types.Product `json:"related"`
}

type ProductListResponse struct {
	Products []types.Product `json:"products"`
	Count    int             `json:"count"`
}

type CategoryLinksResponse struct {
	Links []catalog.CategoryLink `json:"links"`
}

type CategoryTreeResponse struct {
	Categories []*category.Node `json:"categories"`
	Count      int              `json:"count"`
}

type CategoryFlatResponse struct {
	Entries []category.Entry `json:"entries"`
}

// PickerResponse lists the choices for each level of the three-level
// category picker given the current selection.
type PickerResponse struct {
	Mains    []*category.Node `json:"mains"`
	Subs     []*category.Node `json:"subs"`
	Children []*category.Node `json:"children"`
	Parent   *string          `json:"parent"`
}

type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	Seller        bool        `json:"seller"`
	User          *types.User `json:"user,omitempty"`
}

type CouponResponse struct {
	Coupon  *checkout.AppliedCoupon `json:"coupon"`
	Summary checkout.Summary        `json:"summary"`
}

type OrderResponse struct {
	Message string       `json:"message"`
	Order   *types.Order `json:"order,omitempty"`
}

type OrdersResponse struct {
	Orders []types.Order `json:"orders"`
}

type NoticesResponse struct {
	Notices []types.Notice `json:"notices"`
}

type RefreshResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type AddressesResponse struct {
	Addresses []types.Address `json:"addresses"`
}

// CategoryWriteResponse echoes the record sent to the backend and the size
// of the refreshed category list.
type CategoryWriteResponse struct {
	Category *types.CategoryInput `json:"category,omitempty"`
	Count    int                  `json:"count"`
}
