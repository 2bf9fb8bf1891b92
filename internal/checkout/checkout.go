package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Conversly/storefront/internal/cart"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrEmptyCoupon    = errors.New("coupon code is empty")
	ErrNoAddress      = errors.New("no delivery address selected")
	ErrEmptyCart      = errors.New("cart has no orderable items")
	ErrNoPayment      = errors.New("online order without payment id")
	ErrUnknownPayment = errors.New("unknown payment method")
)

// DefaultTaxRate is applied when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.02")

type Backend interface {
	ApplyCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*remote.CouponResult, error)
	PlaceOrderCOD(ctx context.Context, req types.PlaceOrderRequest) (*remote.OrderResult, error)
	PlaceOrderOnline(ctx context.Context, req types.PlaceOrderRequest) (*remote.OrderResult, error)
	CreatePaymentOrder(ctx context.Context, amount int64) (*types.PaymentOrder, error)
	UserOrders(ctx context.Context) ([]types.Order, error)
	Addresses(ctx context.Context) ([]types.Address, error)
}

type Cart interface {
	Items() types.CartItems
	Amount() decimal.Decimal
	Clear(ctx context.Context) error
}

type Products interface {
	Get(id string) (types.Product, bool)
}

type Users interface {
	User() *types.User
}

// AppliedCoupon is the discount the backend granted for a code.
type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Coupon   types.Coupon    `json:"coupon"`
}

// Summary is the price breakdown shown before an order is placed. Every
// figure is rounded half-up to two places.
type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	AmountMinor int64           `json:"amountMinor"`
	Currency    string          `json:"currency"`
	CouponCode  string          `json:"couponCode,omitempty"`
}

// OrderRequest carries what the shopper picked on the cart page.
type OrderRequest struct {
	Method    types.PaymentMethod `json:"method" binding:"required"`
	AddressID string              `json:"addressId" binding:"required"`
	PaymentID string              `json:"paymentId,omitempty"`
}

type Service struct {
	backend  Backend
	cart     Cart
	products Products
	users    Users
	notifier notify.Notifier
	taxRate  decimal.Decimal
	currency string

	mu     sync.Mutex
	coupon *AppliedCoupon
}

// NewService builds checkout over the cart. currency is the display symbol
// echoed in every Summary.
func NewService(backend Backend, c Cart, products Products, users Users, notifier notify.Notifier, taxRate decimal.Decimal, currency string) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &Service{
		backend:  backend,
		cart:     c,
		products: products,
		users:    users,
		notifier: notifier,
		taxRate:  taxRate,
		currency: currency,
	}
}

// Observe drops the applied coupon once the cart is emptied.
func (s *Service) Observe(change cart.Change) {
	if len(change.Items) > 0 {
		return
	}
	s.ClearCoupon()
}

func (s *Service) Coupon() *AppliedCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coupon == nil {
		return nil
	}
	c := *s.coupon
	return &c
}

func (s *Service) ClearCoupon() {
	s.mu.Lock()
	s.coupon = nil
	s.mu.Unlock()
}

func (s *Service) Summary() Summary {
	subtotal := s.cart.Amount().Round(2)
	tax := subtotal.Mul(s.taxRate).Round(2)

	sum := Summary{Subtotal: subtotal, Tax: tax, Discount: decimal.Zero, Currency: s.currency}
	if c := s.Coupon(); c != nil {
		sum.Discount = c.Discount.Round(2)
		sum.CouponCode = c.Code
	}

	total := subtotal.Add(tax).Sub(sum.Discount).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}
	sum.Total = total
	sum.AmountMinor = total.Shift(2).Round(0).IntPart()
	return sum
}

// ApplyCoupon submits code with the current cart amount. The backend does
// the discount math; its message is shown to the shopper as is.
func (s *Service) ApplyCoupon(ctx context.Context, code string) (*AppliedCoupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		s.notifier.Error("Please enter a coupon code")
		return nil, ErrEmptyCoupon
	}

	res, err := s.backend.ApplyCoupon(ctx, code, s.cart.Amount())
	if err != nil {
		s.notifier.Error(remote.Message(err, "Failed to apply coupon"))
		return nil, fmt.Errorf("failed to apply coupon %s: %w", code, err)
	}

	applied := &AppliedCoupon{Code: code, Discount: res.DiscountAmount, Coupon: res.Coupon}
	s.mu.Lock()
	s.coupon = applied
	s.mu.Unlock()

	utils.Zlog.Info("Coupon applied",
		zap.String("code", code),
		zap.String("discount", res.DiscountAmount.String()))
	if res.Message != "" {
		s.notifier.Success(res.Message)
	}
	c := *applied
	return &c, nil
}

// Lines turns the cart into order lines, skipping products the catalog does
// not know. Lines are sorted by product id.
func (s *Service) Lines() []types.OrderItem {
	items := s.cart.Items()
	lines := make([]types.OrderItem, 0, len(items))
	for id, qty := range items {
		if _, ok := s.products.Get(id); !ok {
			continue
		}
		lines = append(lines, types.OrderItem{Product: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product < lines[j].Product })
	return lines
}

// CreatePayment opens a gateway order for the current total, in minor units.
func (s *Service) CreatePayment(ctx context.Context) (*types.PaymentOrder, error) {
	if s.users.User() == nil {
		return nil, ErrNoSession
	}
	sum := s.Summary()
	if sum.AmountMinor <= 0 {
		return nil, ErrEmptyCart
	}
	order, err := s.backend.CreatePaymentOrder(ctx, sum.AmountMinor)
	if err != nil {
		s.notifier.Error(remote.Message(err, "Failed to start payment"))
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	return order, nil
}

// PlaceOrder submits the cart. On success the cart is cleared.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (*remote.OrderResult, error) {
	user := s.users.User()
	if user == nil {
		return nil, ErrNoSession
	}
	if strings.TrimSpace(req.AddressID) == "" {
		s.notifier.Error("Please select an address")
		return nil, ErrNoAddress
	}
	lines := s.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	payload := types.PlaceOrderRequest{
		UserID:  user.ID,
		Items:   lines,
		Address: req.AddressID,
	}
	if c := s.Coupon(); c != nil {
		code := c.Code
		payload.CouponCode = &code
	}

	var (
		res     *remote.OrderResult
		err     error
		success string
	)
	switch req.Method {
	case types.PaymentCOD:
		res, err = s.backend.PlaceOrderCOD(ctx, payload)
	case types.PaymentOnline:
		if req.PaymentID == "" {
			return nil, ErrNoPayment
		}
		amount := s.Summary().Total
		payload.PaymentID = req.PaymentID
		payload.Amount = &amount
		success = "Payment & Order Placed Successfully!"
		res, err = s.backend.PlaceOrderOnline(ctx, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayment, req.Method)
	}
	if err != nil {
		s.notifier.Error(remote.Message(err, "Failed to place order"))
		return nil, fmt.Errorf("failed to place %s order: %w", req.Method, err)
	}

	utils.Zlog.Info("Order placed",
		zap.String("userId", user.ID),
		zap.String("method", string(req.Method)),
		zap.Int("lines", len(lines)))

	if err := s.cart.Clear(ctx); err != nil {
		utils.Zlog.Warn("Failed to persist cleared cart after order", zap.Error(err))
	}
	s.ClearCoupon()

	if success == "" {
		success = res.Message
	}
	if success == "" {
		success = "Order placed"
	}
	s.notifier.Success(success)
	return res, nil
}

// Orders lists the shopper's past orders.
func (s *Service) Orders(ctx context.Context) ([]types.Order, error) {
	if s.users.User() == nil {
		return nil, ErrNoSession
	}
	orders, err := s.backend.UserOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Addresses lists the delivery addresses saved for the shopper.
func (s *Service) Addresses(ctx context.Context) ([]types.Address, error) {
	if s.users.User() == nil {
		return nil, ErrNoSession
	}
	addresses, err := s.backend.Addresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}
