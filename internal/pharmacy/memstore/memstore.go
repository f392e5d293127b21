// Package memstore is an in-memory store.TxRunner. Each Run works on a copy
// of the state that replaces the committed state only when fn succeeds, and
// runs are serialized, so rollback and isolation behave like the SQL store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

type pairKey struct {
	medicationID string
	pharmacyID   string
}

type state struct {
	pharmacies  map[string]domain.Pharmacy
	medications map[string]domain.Medication
	inventory   map[pairKey]domain.Inventory
	usage       map[string]domain.UsageRecord
	audit       []domain.AuditLog
	users       map[string]domain.User
}

func newState() *state {
	return &state{
		pharmacies:  map[string]domain.Pharmacy{},
		medications: map[string]domain.Medication{},
		inventory:   map[pairKey]domain.Inventory{},
		usage:       map[string]domain.UsageRecord{},
		users:       map[string]domain.User{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.pharmacies {
		v.Licenses = append([]string(nil), v.Licenses...)
		c.pharmacies[k] = v
	}
	for k, v := range s.medications {
		c.medications[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.usage {
		c.usage[k] = v
	}
	c.audit = make([]domain.AuditLog, len(s.audit))
	for i, e := range s.audit {
		e.Changes = cloneChanges(e.Changes)
		c.audit[i] = e
	}
	for k, v := range s.users {
		v.PharmacyAccess = append([]string(nil), v.PharmacyAccess...)
		c.users[k] = v
	}
	return c
}

// Store is the in-memory TxRunner.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// Run executes fn against a private copy of the state and commits it when
// fn returns nil.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, u store.Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	u := &unit{st: s.state.clone(), now: s.now}
	if err := fn(ctx, u); err != nil {
		return err
	}
	s.state = u.st
	return nil
}

var _ store.TxRunner = (*Store)(nil)

type unit struct {
	st  *state
	now func() time.Time
}

func (u *unit) Pharmacies() store.PharmacyStore    { return pharmacies{u} }
func (u *unit) Medications() store.MedicationStore { return medications{u} }
func (u *unit) Stock() store.StockStore            { return stock{u} }
func (u *unit) Usage() store.UsageStore            { return usage{u} }
func (u *unit) Audit() store.AuditStore            { return audit{u} }
func (u *unit) Users() store.UserStore             { return users{u} }

// pharmacies

type pharmacies struct{ u *unit }

func (r pharmacies) GetByID(_ context.Context, id string) (*domain.Pharmacy, error) {
	p, ok := r.u.st.pharmacies[id]
	if !ok {
		return nil, errors.NotFound("pharmacy")
	}
	return &p, nil
}

func (r pharmacies) GetByName(_ context.Context, name string) (*domain.Pharmacy, error) {
	for _, p := range r.u.st.pharmacies {
		if p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, errors.NotFound("pharmacy")
}

func (r pharmacies) List(_ context.Context) ([]*domain.Pharmacy, error) {
	out := make([]*domain.Pharmacy, 0, len(r.u.st.pharmacies))
	for _, p := range r.u.st.pharmacies {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r pharmacies) Upsert(_ context.Context, p *domain.Pharmacy) error {
	for id, existing := range r.u.st.pharmacies {
		if existing.Name == p.Name && id != p.ID {
			return errors.Conflict("a pharmacy with this name already exists")
		}
	}
	if existing, ok := r.u.st.pharmacies[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = r.u.now()
	}
	r.u.st.pharmacies[p.ID] = *p
	return nil
}

// medications

type medications struct{ u *unit }

func (r medications) GetByID(_ context.Context, id string) (*domain.Medication, error) {
	m, ok := r.u.st.medications[id]
	if !ok {
		return nil, errors.NotFound("medication")
	}
	return &m, nil
}

func (r medications) GetByCode(_ context.Context, code string) (*domain.Medication, error) {
	for _, m := range r.u.st.medications {
		if m.Code == code {
			m := m
			return &m, nil
		}
	}
	return nil, errors.NotFound("medication")
}

func (r medications) List(_ context.Context) ([]*domain.Medication, error) {
	out := make([]*domain.Medication, 0, len(r.u.st.medications))
	for _, m := range r.u.st.medications {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r medications) Upsert(_ context.Context, m *domain.Medication) error {
	now := r.u.now()
	for id, existing := range r.u.st.medications {
		if existing.Code == m.Code {
			m.ID = id
			m.CreatedAt = existing.CreatedAt
			m.UpdatedAt = now
			r.u.st.medications[id] = *m
			return nil
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt, m.UpdatedAt = now, now
	r.u.st.medications[m.ID] = *m
	return nil
}

// stock

type stock struct{ u *unit }

func (r stock) Get(_ context.Context, medicationID, pharmacyID string) (*domain.Inventory, error) {
	inv, ok := r.u.st.inventory[pairKey{medicationID, pharmacyID}]
	if !ok {
		return nil, errors.NotFound("inventory")
	}
	return &inv, nil
}

func (r stock) GetForUpdate(_ context.Context, medicationID, pharmacyID string) (*domain.Inventory, error) {
	inv, ok := r.u.st.inventory[pairKey{medicationID, pharmacyID}]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r stock) Add(_ context.Context, medicationID, pharmacyID string, amount int, restockedAt *time.Time) (*domain.Inventory, error) {
	key := pairKey{medicationID, pharmacyID}
	inv, ok := r.u.st.inventory[key]
	if !ok {
		inv = domain.Inventory{ID: uuid.New().String(), MedicationID: medicationID, PharmacyID: pharmacyID}
	}
	inv.CurrentStock += amount
	if restockedAt != nil {
		t := *restockedAt
		inv.LastRestocked = &t
	}
	inv.UpdatedAt = r.u.now()
	r.u.st.inventory[key] = inv
	return &inv, nil
}

func (r stock) SubtractIfAvailable(_ context.Context, medicationID, pharmacyID string, amount int) (*domain.Inventory, error) {
	key := pairKey{medicationID, pharmacyID}
	inv, ok := r.u.st.inventory[key]
	if !ok || inv.CurrentStock < amount {
		return nil, nil
	}
	inv.CurrentStock -= amount
	inv.UpdatedAt = r.u.now()
	r.u.st.inventory[key] = inv
	return &inv, nil
}

func (r stock) Set(_ context.Context, medicationID, pharmacyID string, level int, restockedAt time.Time) (*domain.Inventory, error) {
	if level < 0 {
		return nil, errors.Validation(map[string]string{"current_stock": "must not be negative"})
	}
	key := pairKey{medicationID, pharmacyID}
	inv, ok := r.u.st.inventory[key]
	if !ok {
		inv = domain.Inventory{ID: uuid.New().String(), MedicationID: medicationID, PharmacyID: pharmacyID}
	}
	inv.CurrentStock = level
	t := restockedAt
	inv.LastRestocked = &t
	inv.UpdatedAt = r.u.now()
	r.u.st.inventory[key] = inv
	return &inv, nil
}

func (r stock) ResetAll(_ context.Context) (int64, error) {
	now := r.u.now()
	for k, inv := range r.u.st.inventory {
		inv.CurrentStock = 0
		inv.UpdatedAt = now
		r.u.st.inventory[k] = inv
	}
	return int64(len(r.u.st.inventory)), nil
}

func (r stock) List(_ context.Context, pharmacyIDs []string) ([]*domain.Inventory, error) {
	allowed := toSet(pharmacyIDs)
	out := make([]*domain.Inventory, 0, len(r.u.st.inventory))
	for _, inv := range r.u.st.inventory {
		if len(allowed) > 0 && !allowed[inv.PharmacyID] {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MedicationID != out[j].MedicationID {
			return out[i].MedicationID < out[j].MedicationID
		}
		return out[i].PharmacyID < out[j].PharmacyID
	})
	return out, nil
}

// usage

type usage struct{ u *unit }

func (r usage) Create(_ context.Context, rec *domain.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := r.u.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.u.st.usage[rec.ID] = *rec
	return nil
}

func (r usage) GetByID(_ context.Context, id string) (*domain.UsageRecord, error) {
	rec, ok := r.u.st.usage[id]
	if !ok {
		return nil, errors.NotFound("usage record")
	}
	return &rec, nil
}

func (r usage) GetForUpdate(ctx context.Context, id string) (*domain.UsageRecord, error) {
	return r.GetByID(ctx, id)
}

func (r usage) Update(_ context.Context, rec *domain.UsageRecord) error {
	existing, ok := r.u.st.usage[rec.ID]
	if !ok {
		return errors.NotFound("usage record")
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = r.u.now()
	r.u.st.usage[rec.ID] = *rec
	return nil
}

func (r usage) Delete(_ context.Context, id string) error {
	if _, ok := r.u.st.usage[id]; !ok {
		return errors.NotFound("usage record")
	}
	delete(r.u.st.usage, id)
	return nil
}

func (r usage) List(_ context.Context, f store.UsageFilter) ([]*domain.UsageRecord, int64, error) {
	allowed := toSet(f.PharmacyIDs)
	var out []*domain.UsageRecord
	for _, rec := range r.u.st.usage {
		if len(allowed) > 0 && !allowed[rec.PharmacyID] {
			continue
		}
		if f.MedicationID != "" && rec.MedicationID != f.MedicationID {
			continue
		}
		if f.From != nil && rec.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.Date.After(*f.To) {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := int64(len(out))
	return page(out, f.Limit, f.Offset), total, nil
}

// audit

type audit struct{ u *unit }

func (r audit) Create(_ context.Context, e *domain.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = r.u.now()
	entry := *e
	entry.Changes = cloneChanges(e.Changes)
	r.u.st.audit = append(r.u.st.audit, entry)
	return nil
}

func (r audit) List(_ context.Context, f store.AuditFilter) ([]*domain.AuditLog, int64, error) {
	var out []*domain.AuditLog
	for i := len(r.u.st.audit) - 1; i >= 0; i-- {
		e := r.u.st.audit[i]
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		out = append(out, &e)
	}
	total := int64(len(out))
	return page(out, f.Limit, f.Offset), total, nil
}

// users

type users struct{ u *unit }

func (r users) Create(_ context.Context, usr *domain.User) error {
	for _, existing := range r.u.st.users {
		if strings.EqualFold(existing.Email, usr.Email) {
			return errors.Conflict("a user with this email already exists")
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	now := r.u.now()
	usr.CreatedAt, usr.UpdatedAt = now, now
	r.u.st.users[usr.ID] = *usr
	return nil
}

func (r users) GetByID(_ context.Context, id string) (*domain.User, error) {
	usr, ok := r.u.st.users[id]
	if !ok {
		return nil, errors.NotFound("user")
	}
	return &usr, nil
}

func (r users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, usr := range r.u.st.users {
		if strings.EqualFold(usr.Email, email) {
			usr := usr
			return &usr, nil
		}
	}
	return nil, errors.NotFound("user")
}

func (r users) List(_ context.Context, limit, offset int) ([]*domain.User, int64, error) {
	out := make([]*domain.User, 0, len(r.u.st.users))
	for _, usr := range r.u.st.users {
		usr := usr
		out = append(out, &usr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := int64(len(out))
	return page(out, limit, offset), total, nil
}

func (r users) Update(_ context.Context, usr *domain.User) error {
	existing, ok := r.u.st.users[usr.ID]
	if !ok {
		return errors.NotFound("user")
	}
	usr.PasswordHash = existing.PasswordHash
	usr.CreatedAt = existing.CreatedAt
	usr.UpdatedAt = r.u.now()
	r.u.st.users[usr.ID] = *usr
	return nil
}

func (r users) UpdatePassword(_ context.Context, id, passwordHash string) error {
	existing, ok := r.u.st.users[id]
	if !ok {
		return errors.NotFound("user")
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = r.u.now()
	r.u.st.users[id] = existing
	return nil
}

func (r users) Upsert(ctx context.Context, usr *domain.User) error {
	for id, existing := range r.u.st.users {
		if strings.EqualFold(existing.Email, usr.Email) {
			usr.ID = id
			usr.CreatedAt = existing.CreatedAt
			usr.UpdatedAt = r.u.now()
			r.u.st.users[id] = *usr
			return nil
		}
	}
	return r.Create(ctx, usr)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneChanges(c domain.Changes) domain.Changes {
	if c == nil {
		return nil
	}
	out := make(domain.Changes, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
