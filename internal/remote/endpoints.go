package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Conversly/storefront/internal/types"
	"github.com/shopspring/decimal"
)

// UserIsAuth calls GET /api/user/is-auth and returns the signed-in user.
func (c *Client) UserIsAuth(ctx context.Context) (*types.User, error) {
	var out struct {
		User *types.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/is-auth", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, ErrUnauthorized
	}
	return out.User, nil
}

// SellerIsAuth calls GET /api/seller/is-auth; a nil error means privileged.
func (c *Client) SellerIsAuth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/seller/is-auth", nil, nil)
}

func (c *Client) ListProducts(ctx context.Context) ([]types.Product, error) {
	var out struct {
		Products []types.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/product/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]types.Category, error) {
	var out struct {
		Categories []types.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/seller/category/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CategoryResult is the backend answer to a seller category write.
type CategoryResult struct {
	Message  string          `json:"message"`
	Category *types.Category `json:"category,omitempty"`
}

// AddCategory calls POST /api/seller/category/add.
func (c *Client) AddCategory(ctx context.Context, in types.CategoryInput) (*CategoryResult, error) {
	var out CategoryResult
	if err := c.do(ctx, http.MethodPost, "/api/seller/category/add", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditCategory calls PUT /api/seller/category/edit/:id.
func (c *Client) EditCategory(ctx context.Context, id string, in types.CategoryInput) (*CategoryResult, error) {
	var out CategoryResult
	if err := c.do(ctx, http.MethodPut, "/api/seller/category/edit/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory calls DELETE /api/seller/category/delete/:id.
func (c *Client) DeleteCategory(ctx context.Context, id string) (*CategoryResult, error) {
	var out CategoryResult
	if err := c.do(ctx, http.MethodDelete, "/api/seller/category/delete/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Addresses calls GET /api/address/get for the signed-in user.
func (c *Client) Addresses(ctx context.Context) ([]types.Address, error) {
	var out struct {
		Addresses []types.Address `json:"addresses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/address/get", nil, &out); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

// UpdateCart overwrites the server copy of the cart with items.
func (c *Client) UpdateCart(ctx context.Context, items types.CartItems) error {
	if items == nil {
		items = types.CartItems{}
	}
	body := struct {
		CartItems types.CartItems `json:"cartItems"`
	}{items}
	return c.do(ctx, http.MethodPost, "/api/cart/update", body, nil)
}

type CouponResult struct {
	Message        string          `json:"message"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Coupon         types.Coupon    `json:"coupon"`
}

func (c *Client) ApplyCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponResult, error) {
	body := struct {
		Code      string          `json:"code"`
		CartTotal decimal.Decimal `json:"cartTotal"`
	}{code, cartTotal}
	var out CouponResult
	if err := c.do(ctx, http.MethodPost, "/api/coupon/apply", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type OrderResult struct {
	Message string       `json:"message"`
	Order   *types.Order `json:"order,omitempty"`
}

func (c *Client) PlaceOrderCOD(ctx context.Context, req types.PlaceOrderRequest) (*OrderResult, error) {
	var out OrderResult
	if err := c.do(ctx, http.MethodPost, "/api/order/cod", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PlaceOrderOnline(ctx context.Context, req types.PlaceOrderRequest) (*OrderResult, error) {
	var out OrderResult
	if err := c.do(ctx, http.MethodPost, "/api/order/online", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentOrder asks the backend to open a gateway order for amount,
// given in minor units.
func (c *Client) CreatePaymentOrder(ctx context.Context, amount int64) (*types.PaymentOrder, error) {
	body := struct {
		Amount int64 `json:"amount"`
	}{amount}
	var out struct {
		Order types.PaymentOrder `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/payment/create-order", body, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) UserOrders(ctx context.Context) ([]types.Order, error) {
	var out struct {
		Orders []types.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/order/user", nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

type AuthResult struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds types.Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/user/login", creds)
}

func (c *Client) Register(ctx context.Context, creds types.Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/user/register", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds types.Credentials) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, path, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout calls GET /api/user/logout.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/user/logout", nil, nil)
}
