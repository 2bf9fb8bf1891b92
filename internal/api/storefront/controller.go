package storefront

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Conversly/storefront/internal/app"
	"github.com/Conversly/storefront/internal/catalog"
	"github.com/Conversly/storefront/internal/category"
	"github.com/Conversly/storefront/internal/checkout"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller serves the storefront state to the UI.
type Controller struct {
	app *app.App
}

func NewController(a *app.App) *Controller {
	return &Controller{app: a}
}

func respondError(c *gin.Context, status int, label string, message string) {
	c.AbortWithStatusJSON(status, types.ErrorResponse{
		Error:     label,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "Bad Request", err.Error())
}

// fail maps a component error onto an HTTP status.
func fail(c *gin.Context, err error) {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, checkout.ErrNoSession), errors.Is(err, remote.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, checkout.ErrEmptyCoupon),
		errors.Is(err, checkout.ErrNoAddress),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoPayment),
		errors.Is(err, checkout.ErrUnknownPayment):
		badRequest(c, err)
	case errors.Is(err, category.ErrNameRequired),
		errors.Is(err, category.ErrUnknownParent),
		errors.Is(err, category.ErrParentLoop):
		badRequest(c, err)
	case errors.Is(err, category.ErrUnknownID):
		respondError(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &apiErr):
		respondError(c, http.StatusUnprocessableEntity, "Rejected", apiErr.Message)
	case errors.Is(err, remote.ErrTransport):
		respondError(c, http.StatusBadGateway, "Bad Gateway", err.Error())
	default:
		utils.Zlog.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Bad Request", name+" must be an integer")
		return 0, false
	}
	return n, true
}

func (ctrl *Controller) cart() CartResponse {
	s := ctrl.app.Cart
	return CartResponse{
		Items:   s.Items(),
		Count:   s.Count(),
		Amount:  s.Amount(),
		Version: s.Version(),
	}
}

// ====== CART ======

// GetCart returns the cart with its count, amount and version.
func (ctrl *Controller) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.cart())
}

// AddItem adds one unit of a product.
func (ctrl *Controller) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctrl.app.Cart.Add(c.Request.Context(), req.ProductID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.cart())
}

// UpdateItem sets a quantity; zero or less removes the line.
func (ctrl *Controller) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctrl.app.Cart.Update(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.cart())
}

// RemoveItem takes one unit off a line.
func (ctrl *Controller) RemoveItem(c *gin.Context) {
	if err := ctrl.app.Cart.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.cart())
}

// ClearCart empties the cart.
func (ctrl *Controller) ClearCart(c *gin.Context) {
	if err := ctrl.app.Cart.Clear(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.cart())
}

// ====== PRODUCTS ======

// ListProducts returns the catalog, narrowed by ?category=<slug> and ?q=.
// Both filters apply when both are given.
func (ctrl *Controller) ListProducts(c *gin.Context) {
	products := ctrl.app.Catalog.Query(c.Query("category"), c.Query("q"))
	c.JSON(http.StatusOK, ProductListResponse{Products: products, Count: len(products)})
}

// BestSellers returns the first ?limit= products.
func (ctrl *Controller) BestSellers(c *gin.Context) {
	limit, ok := intQuery(c, "limit", catalog.DefaultBestSellerLimit)
	if !ok {
		return
	}
	products := ctrl.app.Catalog.BestSellers(limit)
	c.JSON(http.StatusOK, ProductListResponse{Products: products, Count: len(products)})
}

// CategoryLinks lists the category labels the catalog links to.
func (ctrl *Controller) CategoryLinks(c *gin.Context) {
	c.JSON(http.StatusOK, CategoryLinksResponse{Links: ctrl.app.Catalog.CategoryLinks()})
}

// GetProduct returns a product with the selectable sizes and gallery of the
// requested ?variant and its related products.
func (ctrl *Controller) GetProduct(c *gin.Context) {
	p, ok := ctrl.app.Catalog.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "Not Found", "product not found")
		return
	}
	variant, ok := intQuery(c, "variant", 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ProductResponse{
		Product: p,
		Variant: variant,
		InStock: catalog.InStock(p, variant),
		Sizes:   catalog.SelectableSizes(p, variant),
		Images:  catalog.Images(p, variant),
		Related: ctrl.app.Catalog.Related(p.ID, catalog.DefaultRelatedLimit),
	})
}

// RelatedProducts lists products sharing the category of :id.
func (ctrl *Controller) RelatedProducts(c *gin.Context) {
	limit, ok := intQuery(c, "limit", catalog.DefaultRelatedLimit)
	if !ok {
		return
	}
	products := ctrl.app.Catalog.Related(c.Param("id"), limit)
	c.JSON(http.StatusOK, ProductListResponse{Products: products, Count: len(products)})
}

// ====== CATEGORIES ======

// CategoryTree returns the forest, pruned to matches when ?q= is given.
func (ctrl *Controller) CategoryTree(c *gin.Context) {
	forest := ctrl.app.Categories.Forest()
	if term := c.Query("q"); term != "" {
		forest = category.Filter(forest, term)
	}
	if forest == nil {
		forest = []*category.Node{}
	}
	c.JSON(http.StatusOK, CategoryTreeResponse{Categories: forest, Count: category.Count(forest)})
}

// CategoryFlat returns the forest depth-first with levels.
func (ctrl *Controller) CategoryFlat(c *gin.Context) {
	entries := category.Flatten(ctrl.app.Categories.Forest())
	if entries == nil {
		entries = []category.Entry{}
	}
	c.JSON(http.StatusOK, CategoryFlatResponse{Entries: entries})
}

// CategoryPicker returns the options for ?main= and ?sub= selections.
func (ctrl *Controller) CategoryPicker(c *gin.Context) {
	p := ctrl.app.Categories.Picker()
	mainID, subID := c.Query("main"), c.Query("sub")
	resp := PickerResponse{
		Mains:    p.Mains(),
		Subs:     []*category.Node{},
		Children: []*category.Node{},
		Parent:   p.Parent(mainID, subID),
	}
	if mainID != "" {
		resp.Subs = p.Subs(mainID)
	}
	if subID != "" {
		resp.Children = p.Children(subID)
	}
	c.JSON(http.StatusOK, resp)
}

// ====== SESSION ======

func (ctrl *Controller) session() SessionResponse {
	s := ctrl.app.Session
	return SessionResponse{
		Authenticated: s.IsAuthenticated(),
		Seller:        s.IsSeller(),
		User:          s.User(),
	}
}

// Me reports the current session.
func (ctrl *Controller) Me(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.session())
}

// Login signs in and seeds the cart from the account.
func (ctrl *Controller) Login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := ctrl.app.Session.Login(c.Request.Context(), creds); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.session())
}

// Register creates an account and signs in.
func (ctrl *Controller) Register(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return
	}
	if creds.Name == "" {
		respondError(c, http.StatusBadRequest, "Bad Request", "name is required")
		return
	}
	if _, err := ctrl.app.Session.Register(c.Request.Context(), creds); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.session())
}

// Logout ends the session. It always succeeds locally.
func (ctrl *Controller) Logout(c *gin.Context) {
	ctrl.app.Session.Logout(c.Request.Context())
	c.JSON(http.StatusOK, ctrl.session())
}

// ====== CHECKOUT ======

// Summary prices the cart for checkout.
func (ctrl *Controller) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.app.Checkout.Summary())
}

// ApplyCoupon validates a code against the backend.
func (ctrl *Controller) ApplyCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	applied, err := ctrl.app.Checkout.ApplyCoupon(c.Request.Context(), req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CouponResponse{Coupon: applied, Summary: ctrl.app.Checkout.Summary()})
}

// RemoveCoupon drops the applied coupon.
func (ctrl *Controller) RemoveCoupon(c *gin.Context) {
	ctrl.app.Checkout.ClearCoupon()
	c.JSON(http.StatusOK, CouponResponse{Summary: ctrl.app.Checkout.Summary()})
}

// CreatePayment opens a gateway order for the total.
func (ctrl *Controller) CreatePayment(c *gin.Context) {
	order, err := ctrl.app.Checkout.CreatePayment(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PlaceOrder submits the cart and clears it on success.
func (ctrl *Controller) PlaceOrder(c *gin.Context) {
	var req checkout.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := ctrl.app.Checkout.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, OrderResponse{Message: res.Message, Order: res.Order})
}

// Orders lists the shopper's past orders.
func (ctrl *Controller) Orders(c *gin.Context) {
	orders, err := ctrl.app.Checkout.Orders(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []types.Order{}
	}
	c.JSON(http.StatusOK, OrdersResponse{Orders: orders})
}

// Addresses lists the shopper's saved delivery addresses.
func (ctrl *Controller) Addresses(c *gin.Context) {
	addresses, err := ctrl.app.Checkout.Addresses(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if addresses == nil {
		addresses = []types.Address{}
	}
	c.JSON(http.StatusOK, AddressesResponse{Addresses: addresses})
}

// ====== NOTIFICATIONS ======

// Notices drains the pending toasts.
func (ctrl *Controller) Notices(c *gin.Context) {
	notices := ctrl.app.Notices.Drain()
	if notices == nil {
		notices = []types.Notice{}
	}
	c.JSON(http.StatusOK, NoticesResponse{Notices: notices})
}

// ====== SELLER ======

// CategoryReport lists orphans, cycles and duplicate ids.
func (ctrl *Controller) CategoryReport(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.app.Categories.Report())
}

// RefreshCategories reloads the category list from the backend.
func (ctrl *Controller) RefreshCategories(c *gin.Context) {
	if err := ctrl.app.Categories.Refresh(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RefreshResponse{Status: "refreshed", Count: len(ctrl.app.Categories.Records())})
}

// RefreshProducts refetches the catalog.
func (ctrl *Controller) RefreshProducts(c *gin.Context) {
	cfg := ctrl.app.Config
	if err := ctrl.app.Catalog.Fetch(c.Request.Context(), cfg.ProductFetchRetries, cfg.ProductFetchBackoff); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RefreshResponse{Status: "refreshed", Count: len(ctrl.app.Catalog.Products())})
}

func (ctrl *Controller) categoryWritten(c *gin.Context, status int, in *types.CategoryInput) {
	c.JSON(status, CategoryWriteResponse{Category: in, Count: len(ctrl.app.Categories.Records())})
}

// AddCategory creates a category from a picker draft.
func (ctrl *Controller) AddCategory(c *gin.Context) {
	var draft category.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	in, err := ctrl.app.Editor.Add(c.Request.Context(), draft)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.categoryWritten(c, http.StatusCreated, in)
}

// EditCategory rewrites :id from a picker draft.
func (ctrl *Controller) EditCategory(c *gin.Context) {
	var draft category.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	in, err := ctrl.app.Editor.Edit(c.Request.Context(), c.Param("id"), draft)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.categoryWritten(c, http.StatusOK, in)
}

// DeleteCategory removes :id.
func (ctrl *Controller) DeleteCategory(c *gin.Context) {
	if err := ctrl.app.Editor.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ctrl.categoryWritten(c, http.StatusOK, nil)
}
