package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

// memStore mimics the Postgres schema closely enough for service tests:
// identities are shared across roles, foreign keys are checked and RunAtomic
// restores a snapshot when fn fails.
type memStore struct {
	mu sync.Mutex

	identities map[string]model.Role
	profiles   map[string]model.Profile
	products   map[int64]model.Product
	orders     map[uuid.UUID]model.Order
	lines      []model.OrderLine
	nextLineID int64
	nextProdID int64

	// failLineInsert makes the n-th InsertOrderLine call fail (1-based).
	failLineInsert int
	lineInserts    int
	existsErr      error
}

func newMemStore() *memStore {
	return &memStore{
		identities: map[string]model.Role{},
		profiles:   map[string]model.Profile{},
		products:   map[int64]model.Product{},
		orders:     map[uuid.UUID]model.Order{},
	}
}

type snapshot struct {
	identities map[string]model.Role
	profiles   map[string]model.Profile
	products   map[int64]model.Product
	orders     map[uuid.UUID]model.Order
	lines      []model.OrderLine
}

func (m *memStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	snap := snapshot{
		identities: lo.Assign(m.identities),
		profiles:   lo.Assign(m.profiles),
		products:   lo.Assign(m.products),
		orders:     lo.Assign(m.orders),
		lines:      append([]model.OrderLine(nil), m.lines...),
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.identities, m.profiles, m.products, m.orders, m.lines =
			snap.identities, snap.profiles, snap.products, snap.orders, snap.lines
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) BuyerExists(_ context.Context, id string) (bool, error) {
	return m.profileExists(id, model.RoleBuyer)
}

func (m *memStore) SellerExists(_ context.Context, id string) (bool, error) {
	return m.profileExists(id, model.RoleSeller)
}

func (m *memStore) profileExists(id string, role model.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	p, ok := m.profiles[id]
	return ok && p.Role == role, nil
}

func (m *memStore) ClaimIdentity(_ context.Context, id string, role model.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.identities[id]; taken {
		return false, nil
	}
	m.identities[id] = role
	return true, nil
}

func (m *memStore) InsertProfile(_ context.Context, p model.Profile) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identities[p.ID] != p.Role {
		return model.Profile{}, apperror.Referential(nil, "identity %s not claimed for %s", p.ID, p.Role)
	}
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memStore) addSeller(id string) {
	m.identities[id] = model.RoleSeller
	m.profiles[id] = model.Profile{ID: id, Username: id, Role: model.RoleSeller}
}

func (m *memStore) addBuyer(id string) {
	m.identities[id] = model.RoleBuyer
	m.profiles[id] = model.Profile{ID: id, Username: id, Role: model.RoleBuyer}
}

func (m *memStore) addProduct(p model.Product) {
	m.products[p.ID] = p
	if p.ID > m.nextProdID {
		m.nextProdID = p.ID
	}
}

func (m *memStore) LockProducts(_ context.Context, ids []int64) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) InsertOrder(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[o.BuyerID]; !ok || p.Role != model.RoleBuyer {
		return apperror.Referential(nil, "buyer %s not found", o.BuyerID)
	}
	if p, ok := m.profiles[o.SellerID]; !ok || p.Role != model.RoleSeller {
		return apperror.Referential(nil, "seller %s not found", o.SellerID)
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now().Add(time.Duration(len(m.orders)) * time.Millisecond)
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) InsertOrderLine(_ context.Context, l *model.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineInserts++
	if m.failLineInsert > 0 && m.lineInserts == m.failLineInsert {
		return apperror.Referential(nil, "product %d not found", l.ProductID)
	}
	if _, ok := m.products[l.ProductID]; !ok {
		return apperror.Referential(nil, "product %d not found", l.ProductID)
	}
	m.nextLineID++
	l.ID = m.nextLineID
	m.lines = append(m.lines, *l)
	return nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status bool) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, apperror.NotFound("order not found")
	}
	o.Status = status
	m.orders[id] = o
	return o, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, apperror.NotFound("order not found")
	}
	return m.withLines(o), nil
}

func (m *memStore) ListOrders(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.OpenOnly && o.Status {
			continue
		}
		out = append(out, m.withLines(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) withLines(o model.Order) model.Order {
	o.Lines = nil
	for _, l := range m.lines {
		if l.OrderID == o.ID {
			p := m.products[l.ProductID]
			l.Product = &p
			o.Lines = append(o.Lines, l)
		}
	}
	return o
}

func (m *memStore) ListProducts(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := lo.Values(m.products)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return model.Product{}, apperror.NotFound("product not found")
	}
	return p, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.profiles[p.SellerID]; !ok || s.Role != model.RoleSeller {
		return apperror.Referential(nil, "seller %s not found", p.SellerID)
	}
	m.nextProdID++
	p.ID = m.nextProdID
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.ID]
	if !ok {
		return apperror.NotFound("product not found")
	}
	if p.ImageURL == "" {
		p.ImageURL = old.ImageURL
	}
	if p.SellerID == "" {
		p.SellerID = old.SellerID
	}
	if s, ok := m.profiles[p.SellerID]; !ok || s.Role != model.RoleSeller {
		return apperror.Referential(nil, "seller %s not found", p.SellerID)
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return model.Product{}, apperror.NotFound("product not found")
	}
	if lo.ContainsBy(m.lines, func(l model.OrderLine) bool { return l.ProductID == id }) {
		return model.Product{}, apperror.Conflict(nil, "product %d is referenced by orders", id)
	}
	delete(m.products, id)
	return p, nil
}
