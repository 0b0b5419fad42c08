package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//
// ---------- STUBS & FAKES ----------
//

// fakeCatalog implements Catalog in memory with the same stock rules the
// catalog service enforces.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*ProductDTO
}

func newFakeCatalog(ps ...ProductDTO) *fakeCatalog {
	f := &fakeCatalog{products: make(map[string]*ProductDTO)}
	for i := range ps {
		cp := ps[i]
		f.products[cp.ID] = &cp
	}
	return f
}

func (f *fakeCatalog) FetchProduct(ctx context.Context, id string) (*ProductDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) AdjustStock(ctx context.Context, productID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product not found")
	}
	if p.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

func (f *fakeCatalog) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeIdentity struct {
	users map[string]Identity // keyed by user id
}

func (f *fakeIdentity) Resolve(ctx context.Context, token string) (*Identity, error) {
	// Tests resolve tokens of the form "tok-<userID>".
	for id, u := range f.users {
		if token == "tok-"+id {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrUnauthorized
}

func (f *fakeIdentity) FetchUser(ctx context.Context, id string) (*Identity, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	cp := u
	return &cp, nil
}

// failCreateRepo makes Create fail to exercise the restock compensation.
type failCreateRepo struct{ Repository }

func (failCreateRepo) Create(ctx context.Context, o *Order) error {
	return fmt.Errorf("disk full")
}

// failUpdateRepo makes the payment write fail while reads keep working.
type failUpdateRepo struct{ Repository }

func (failUpdateRepo) UpdatePayment(ctx context.Context, o *Order) error {
	return fmt.Errorf("disk full")
}

// downCatalog simulates a catalog outage on every call.
type downCatalog struct{}

func (downCatalog) FetchProduct(ctx context.Context, id string) (*ProductDTO, error) {
	return nil, fmt.Errorf("%w: catalog: connection refused", ErrUpstream)
}

func (downCatalog) AdjustStock(ctx context.Context, productID string, delta int) error {
	return fmt.Errorf("%w: catalog: connection refused", ErrUpstream)
}

func newTestService(products ...ProductDTO) (*Service, *MemoryRepo, *fakeCatalog, *fakeIdentity) {
	repo := NewMemoryRepo()
	cat := newFakeCatalog(products...)
	ident := &fakeIdentity{users: map[string]Identity{
		"u1": {ID: "u1", Name: "Ada", Email: "ada@example.com"},
		"u2": {ID: "u2", Name: "Grace", Email: "grace@example.com"},
	}}
	return NewService(repo, cat, ident), repo, cat, ident
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioARequest(productID string) CreateRequest {
	return CreateRequest{
		Items:           []CreateItem{{ProductID: productID, Quantity: 2, UnitPrice: dec("50")}},
		ShippingAddress: Address{Address: "1 Main St", City: "Lima", PostalCode: "15001", Country: "PE"},
		PaymentMethod:   "paypal",
		ItemsPrice:      dec("100"),
		ShippingPrice:   dec("10"),
		TaxPrice:        dec("5"),
		TotalPrice:      dec("115"),
	}
}

func scenarioBConfirmation() Confirmation {
	c := Confirmation{
		TransactionID: "tx1",
		Status:        "COMPLETED",
		CreateTime:    "t",
	}
	c.Payer.EmailAddress = "a@b.com"
	return c
}

//
// ---------- TESTS ----------
//

func TestCreateOrder_EmptyCart(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService()

	for _, req := range []CreateRequest{
		{},
		{Items: []CreateItem{}, TotalPrice: dec("99")},
	} {
		if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("err=%v, want ErrInvalidRequest", err)
		}
	}
	if got, _ := repo.ListByUser(context.Background(), "u1"); len(got) != 0 {
		t.Fatalf("store should stay empty, got %d orders", len(got))
	}
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	if _, err := svc.CreateOrder(context.Background(), "", scenarioARequest("p1")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}
}

func TestCreateOrder_ScenarioA(t *testing.T) {
	t.Parallel()
	svc, _, cat, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5, Image: "/img/widget.png"})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID == "" || o.UserID != "u1" {
		t.Fatalf("bad id/owner: %+v", o)
	}
	if o.IsPaid || o.PaidAt != nil || o.PaymentResult != nil {
		t.Fatalf("new order must be unpaid: %+v", o)
	}
	if !o.TotalPrice.Equal(dec("115")) {
		t.Fatalf("total=%s, want 115", o.TotalPrice)
	}
	if !o.ItemsPrice.Equal(dec("100")) {
		t.Fatalf("items price=%s, want 100", o.ItemsPrice)
	}
	// invariant: total = items + tax + shipping
	if !o.TotalPrice.Equal(o.ItemsPrice.Add(o.TaxPrice).Add(o.ShippingPrice)) {
		t.Fatalf("total invariant broken: %+v", o)
	}
	// price snapshot comes from the catalog, not the client
	if len(o.Items) != 1 || !o.Items[0].UnitPrice.Equal(dec("50.00")) || o.Items[0].Name != "Widget" {
		t.Fatalf("bad items: %+v", o.Items)
	}
	if o.CreatedAt.IsZero() {
		t.Fatalf("createdAt not set")
	}
	if cat.stock("p1") != 3 {
		t.Fatalf("stock=%d, want 3", cat.stock("p1"))
	}
}

func TestCreateOrder_RejectsTamperedTotals(t *testing.T) {
	t.Parallel()
	svc, _, cat, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	req := scenarioARequest("p1")
	req.ItemsPrice = dec("1")
	req.TotalPrice = dec("16")
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for tampered items price", err)
	}

	req = scenarioARequest("p1")
	req.TotalPrice = dec("20")
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for tampered total", err)
	}

	if cat.stock("p1") != 5 {
		t.Fatalf("stock must be untouched on rejection, got %d", cat.stock("p1"))
	}
}

func TestCreateOrder_RejectsNegativeCharges(t *testing.T) {
	t.Parallel()
	svc, repo, cat, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	// negative tax/shipping would make a near-zero total pass the guard
	req := scenarioARequest("p1")
	req.TaxPrice = dec("-95")
	req.ShippingPrice = dec("-4")
	req.TotalPrice = dec("1")
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for negative charges", err)
	}

	req = scenarioARequest("p1")
	req.ItemsPrice = dec("-1")
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for negative items price", err)
	}

	req = scenarioARequest("p1")
	req.TotalPrice = dec("-115")
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for negative total", err)
	}

	if cat.stock("p1") != 5 {
		t.Fatalf("stock must be untouched, got %d", cat.stock("p1"))
	}
	if got, _ := repo.ListByUser(context.Background(), "u1"); len(got) != 0 {
		t.Fatalf("no order may be persisted, got %d", len(got))
	}
}

func TestCreateOrder_CatalogDownIsUpstreamError(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService()
	svc.catalog = downCatalog{}

	_, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v, want ErrUpstream", err)
	}
	if errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("a catalog outage is not the caller's fault: %v", err)
	}
}

func TestCreateOrder_ToleratesRounding(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "33.33", Stock: 9})

	req := CreateRequest{
		Items:         []CreateItem{{ProductID: "p1", Quantity: 3}},
		PaymentMethod: "card",
		ItemsPrice:    dec("100.00"), // true sum is 99.99
		TaxPrice:      dec("0"),
		ShippingPrice: dec("0"),
		TotalPrice:    dec("100.00"),
	}
	o, err := svc.CreateOrder(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("0.01 drift must pass: %v", err)
	}
	if !o.ItemsPrice.Equal(dec("99.99")) {
		t.Fatalf("server must keep its own sum, got %s", o.ItemsPrice)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	t.Parallel()
	svc, repo, cat, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 1})

	_, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err=%v, want ErrInsufficientStock", err)
	}
	if cat.stock("p1") != 1 {
		t.Fatalf("stock=%d, want 1", cat.stock("p1"))
	}
	if got, _ := repo.ListByUser(context.Background(), "u1"); len(got) != 0 {
		t.Fatalf("no order may be persisted, got %d", len(got))
	}
}

func TestCreateOrder_RestocksPartialReservation(t *testing.T) {
	t.Parallel()
	svc, _, cat, _ := newTestService(
		ProductDTO{ID: "p1", Name: "Widget", Price: "10.00", Stock: 5},
		ProductDTO{ID: "p2", Name: "Gadget", Price: "20.00", Stock: 1},
	)

	req := CreateRequest{
		Items: []CreateItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3}, // over stock, fails after p1 reserved
		},
	}
	if _, err := svc.CreateOrder(context.Background(), "u1", req); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err=%v, want ErrInsufficientStock", err)
	}
	if cat.stock("p1") != 5 || cat.stock("p2") != 1 {
		t.Fatalf("reservation must be compensated: p1=%d p2=%d", cat.stock("p1"), cat.stock("p2"))
	}
}

func TestCreateOrder_StorageFailureRestocks(t *testing.T) {
	t.Parallel()
	svc, _, cat, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})
	svc.repo = failCreateRepo{svc.repo}

	_, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v, want ErrStorage", err)
	}
	if cat.stock("p1") != 5 {
		t.Fatalf("stock=%d, want 5 after compensation", cat.stock("p1"))
	}
}

func TestConfirmPayment_ScenarioB(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	paid, err := svc.ConfirmPayment(context.Background(), "u1", o.ID, scenarioBConfirmation())
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if !paid.IsPaid || paid.PaidAt == nil {
		t.Fatalf("order not marked paid: %+v", paid)
	}
	if paid.PaymentResult == nil || paid.PaymentResult.PayerEmail != "a@b.com" {
		t.Fatalf("payment result=%+v, want payer a@b.com", paid.PaymentResult)
	}
	if paid.PaymentResult.TransactionID != "tx1" || paid.PaymentResult.Status != "COMPLETED" || paid.PaymentResult.UpdateTime != "t" {
		t.Fatalf("payment result=%+v", paid.PaymentResult)
	}

	// the transition is persisted
	got, err := svc.GetOrder(context.Background(), "u1", o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !got.IsPaid || got.PaymentResult == nil || got.PaymentResult.PayerEmail != "a@b.com" {
		t.Fatalf("persisted order=%+v", got.Order)
	}
}

func TestConfirmPayment_NotFound(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService()

	_, err := svc.ConfirmPayment(context.Background(), "u1", uuid.NewString(), scenarioBConfirmation())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if got, _ := repo.ListByUser(context.Background(), "u1"); len(got) != 0 {
		t.Fatalf("store must stay unchanged")
	}
}

func TestConfirmPayment_MissingPayloadFields(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	noEmail := scenarioBConfirmation()
	noEmail.Payer.EmailAddress = ""
	if _, err := svc.ConfirmPayment(context.Background(), "u1", o.ID, noEmail); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for missing email", err)
	}

	noTx := scenarioBConfirmation()
	noTx.TransactionID = ""
	if _, err := svc.ConfirmPayment(context.Background(), "u1", o.ID, noTx); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err=%v, want ErrInvalidRequest for missing tx id", err)
	}

	if got, _ := svc.GetOrder(context.Background(), "u1", o.ID); got.IsPaid {
		t.Fatalf("rejected payload must not pay the order")
	}
}

func TestConfirmPayment_StorageFailure(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	svc.repo = failUpdateRepo{svc.repo}

	_, err = svc.ConfirmPayment(context.Background(), "u1", o.ID, scenarioBConfirmation())
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v, want ErrStorage", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("a broken store must not read as a missing order: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.IsPaid || stored.PaidAt != nil {
		t.Fatalf("failed write must leave the order unpaid: %+v", stored)
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	first, err := svc.ConfirmPayment(context.Background(), "u1", o.ID, scenarioBConfirmation())
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	retry := scenarioBConfirmation()
	retry.TransactionID = "tx2" // a retried capture with a different tx must not re-apply
	second, err := svc.ConfirmPayment(context.Background(), "u1", o.ID, retry)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if second.PaymentResult.TransactionID != "tx1" {
		t.Fatalf("second confirm overwrote the payment: %+v", second.PaymentResult)
	}
	if !second.PaidAt.Equal(*first.PaidAt) {
		t.Fatalf("paidAt moved on retry: %v -> %v", first.PaidAt, second.PaidAt)
	}
}

func TestConfirmPayment_ConcurrentAppliesOnce(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 100})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			conf := scenarioBConfirmation()
			conf.TransactionID = fmt.Sprintf("tx-%d", i)
			_, errs[i] = svc.ConfirmPayment(context.Background(), "u1", o.ID, conf)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil && !errors.Is(err, ErrConflict) {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}

	stored, err := repo.GetByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.IsPaid || stored.PaymentResult == nil {
		t.Fatalf("order must end up paid: %+v", stored)
	}
	// exactly one write transition: version bumped exactly once
	if stored.Version != 1 {
		t.Fatalf("version=%d, want 1 (single payment application)", stored.Version)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService()

	if _, err := svc.GetOrder(context.Background(), "u1", uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestGetOrder_ForbiddenForOtherUser(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), "u2", o.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden", err)
	}
}

func TestGetOrder_JoinsOwnerProfile(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	d, err := svc.GetOrder(context.Background(), "u1", o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if d.User == nil || d.User.Name != "Ada" || d.User.Email != "ada@example.com" {
		t.Fatalf("owner join=%+v", d.User)
	}
}

func TestGetOrder_JoinFailureDegrades(t *testing.T) {
	t.Parallel()
	svc, _, _, ident := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 5})

	o, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	delete(ident.users, "u1")
	d, err := svc.GetOrder(context.Background(), "u1", o.ID)
	if err != nil {
		t.Fatalf("read must survive a dead profile lookup: %v", err)
	}
	if d.User != nil {
		t.Fatalf("expected no owner join, got %+v", d.User)
	}
}

func TestListOrders_EmptyIsSuccess(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService()

	out, err := svc.ListOrders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", out)
	}
}

func TestListOrders_OwnerScopedNewestFirst(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(ProductDTO{ID: "p1", Name: "Widget", Price: "50.00", Stock: 100})

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	svc.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}

	first, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), "u2", scenarioARequest("p1")); err != nil {
		t.Fatalf("CreateOrder u2: %v", err)
	}
	second, err := svc.CreateOrder(context.Background(), "u1", scenarioARequest("p1"))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	out, err := svc.ListOrders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len=%d, want 2", len(out))
	}
	for _, o := range out {
		if o.UserID != "u1" {
			t.Fatalf("foreign order leaked: %+v", o)
		}
	}
	if out[0].ID != second.ID || out[1].ID != first.ID {
		t.Fatalf("not newest-first: got [%s %s], want [%s %s]", out[0].ID, out[1].ID, second.ID, first.ID)
	}
}
