package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// tolerance absorbs rounding drift when comparing client totals against the
// server-side recomputation.
var tolerance = decimal.New(1, -2) // 0.01

// Service is the sole authority over Order creation and mutation. Every
// invariant lives here; the store stays dumb.
type Service struct {
	repo     Repository
	catalog  Catalog
	identity IdentityResolver
	now      func() time.Time
}

func NewService(repo Repository, catalog Catalog, identity IdentityResolver) *Service {
	return &Service{repo: repo, catalog: catalog, identity: identity, now: time.Now}
}

// CreateOrder validates the cart, reprices it against the catalog, reserves
// stock and persists the order. Totals from the client are checked, never
// trusted: a mismatch beyond the rounding tolerance is rejected.
func (s *Service) CreateOrder(ctx context.Context, callerID string, req CreateRequest) (*Order, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrInvalidRequest)
	}
	// Monetary amounts are non-negative; a negative tax or shipping charge
	// would let a tampered cart pass the total check below.
	if req.ItemsPrice.IsNegative() || req.ShippingPrice.IsNegative() ||
		req.TaxPrice.IsNegative() || req.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: monetary amounts must be non-negative", ErrInvalidRequest)
	}

	items := make([]Item, 0, len(req.Items))
	itemsPrice := decimal.Zero
	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", ErrInvalidRequest, in.ProductID)
		}
		p, err := s.catalog.FetchProduct(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, ErrUpstream) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: product %s: %v", ErrInvalidRequest, in.ProductID, err)
		}
		unit, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog returned bad price for %s: %w", in.ProductID, err)
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: unit,
			Quantity:  in.Quantity,
			Image:     p.Image,
		})
		itemsPrice = itemsPrice.Add(unit.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}

	if !req.ItemsPrice.IsZero() && req.ItemsPrice.Sub(itemsPrice).Abs().GreaterThan(tolerance) {
		return nil, fmt.Errorf("%w: items price mismatch (got %s, charged %s)", ErrInvalidRequest, req.ItemsPrice, itemsPrice)
	}
	total := itemsPrice.Add(req.TaxPrice).Add(req.ShippingPrice)
	if !req.TotalPrice.IsZero() && req.TotalPrice.Sub(total).Abs().GreaterThan(tolerance) {
		return nil, fmt.Errorf("%w: total price mismatch (got %s, charged %s)", ErrInvalidRequest, req.TotalPrice, total)
	}

	if err := s.reserveStock(ctx, items); err != nil {
		return nil, err
	}

	o := &Order{
		ID:              uuid.NewString(),
		UserID:          callerID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      itemsPrice,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        req.TaxPrice,
		TotalPrice:      total,
		IsPaid:          false,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		// No partial writes: give the reserved stock back.
		s.restock(ctx, items)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return o, nil
}

// GetOrder returns the order plus a read-time join of the owner's display
// profile. Only the owner may read it.
func (s *Service) GetOrder(ctx context.Context, callerID, orderID string) (*Detail, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != callerID {
		return nil, ErrForbidden
	}
	d := &Detail{Order: *o}
	// Display-only join; a missing profile must not fail the read.
	if u, err := s.identity.FetchUser(ctx, o.UserID); err == nil {
		d.User = &Owner{Name: u.Name, Email: u.Email}
	}
	return d, nil
}

// ConfirmPayment applies a gateway confirmation exactly once. A second
// confirmation of a paid order returns the stored order unchanged, and a
// lost race against a concurrent confirmation never double-applies.
func (s *Service) ConfirmPayment(ctx context.Context, callerID, orderID string, conf Confirmation) (*Order, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if conf.TransactionID == "" || conf.Payer.EmailAddress == "" {
		return nil, fmt.Errorf("%w: missing transaction id or payer email", ErrInvalidRequest)
	}

	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsPaid {
		return o, nil
	}

	paidAt := s.now().UTC()
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &PaymentResult{
		TransactionID: conf.TransactionID,
		Status:        conf.Status,
		UpdateTime:    conf.CreateTime,
		PayerEmail:    conf.Payer.EmailAddress,
	}

	switch err := s.repo.UpdatePayment(ctx, o); {
	case err == nil:
		return o, nil
	case errors.Is(err, ErrVersionConflict):
		cur, err := s.getOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if cur.IsPaid {
			return cur, nil
		}
		return nil, ErrConflict
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

// ListOrders returns the caller's orders, newest first. No orders is a
// normal empty result, not an error.
func (s *Service) ListOrders(ctx context.Context, callerID string) ([]Order, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	out, err := s.repo.ListByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

func (s *Service) getOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return o, nil
}

func (s *Service) reserveStock(ctx context.Context, items []Item) error {
	for i, it := range items {
		if err := s.catalog.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			s.restock(ctx, items[:i])
			if errors.Is(err, ErrInsufficientStock) {
				return fmt.Errorf("%w: product %s", ErrInsufficientStock, it.ProductID)
			}
			if errors.Is(err, ErrUpstream) {
				return fmt.Errorf("reserve stock for %s: %w", it.ProductID, err)
			}
			return fmt.Errorf("%w: reserve stock for %s: %v", ErrInvalidRequest, it.ProductID, err)
		}
	}
	return nil
}

// restock is best-effort compensation; a failed restock is the catalog's
// problem to reconcile, not a reason to fail the caller twice.
func (s *Service) restock(ctx context.Context, items []Item) {
	for _, it := range items {
		_ = s.catalog.AdjustStock(ctx, it.ProductID, it.Quantity)
	}
}
