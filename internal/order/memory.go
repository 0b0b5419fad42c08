package order

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a mutex-guarded map store. It backs tests and DB-less
// development and honors the same version CAS contract as PGRepo.
type MemoryRepo struct {
	mu sync.RWMutex
	m  map[string]*Order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{m: make(map[string]*Order)}
}

func (r *MemoryRepo) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	r.m[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Order{}
	for _, o := range r.m {
		if o.UserID != userID {
			continue
		}
		cp := *o
		cp.Items = append([]Item(nil), o.Items...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) UpdatePayment(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.m[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != o.Version {
		return ErrVersionConflict
	}
	cur.IsPaid = o.IsPaid
	cur.PaidAt = o.PaidAt
	cur.PaymentResult = o.PaymentResult
	cur.Version++
	o.Version = cur.Version
	return nil
}
