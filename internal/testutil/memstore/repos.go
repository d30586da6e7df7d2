package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// ── Lotes ─────────────────────────────────────────────────────────────────────

// LotRepo LotRepository en memoria.
type LotRepo struct{ s *Store }

var _ repository.LotRepository = (*LotRepo)(nil)

func (r *LotRepo) Create(_ context.Context, lot *entity.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lots {
		if l.OrgID == lot.OrgID && l.LotNumber == lot.LotNumber {
			return domain.ErrDuplicate
		}
	}
	c := *lot
	r.s.lots[lot.ID] = &c
	return nil
}

func (r *LotRepo) GetByID(_ context.Context, orgID, id string) (*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lots[id]
	if !ok || l.OrgID != orgID {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (r *LotRepo) Update(_ context.Context, lot *entity.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lots[lot.ID]
	if !ok || l.OrgID != lot.OrgID {
		return domain.ErrNotFound
	}
	c := *lot
	c.QuantityReceived = l.QuantityReceived
	r.s.lots[lot.ID] = &c
	return nil
}

func (r *LotRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*entity.Lot, error) {
	all, _ := r.ListAll(ctx, orgID)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (r *LotRepo) ListAll(_ context.Context, orgID string) ([]*entity.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Lot, 0)
	for _, l := range r.s.lots {
		if l.OrgID == orgID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *LotRepo) Delete(_ context.Context, orgID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lots[id]
	if !ok || l.OrgID != orgID {
		return domain.ErrNotFound
	}
	delete(r.s.lots, id)
	return nil
}

// ── Botellas ──────────────────────────────────────────────────────────────────

// BottleRepo BottleRepository en memoria.
type BottleRepo struct{ s *Store }

var _ repository.BottleRepository = (*BottleRepo)(nil)

// detail requiere r.s.mu tomado.
func (r *BottleRepo) detail(b *entity.Bottle) *entity.BottleDetail {
	d := &entity.BottleDetail{Bottle: *b}
	if l, ok := r.s.lots[b.LotID]; ok {
		d.LotNumber = l.LotNumber
		d.LotCreatedAt = l.CreatedAt
		d.CostPerUnit = l.CostPerUnit
		d.PeptideID = l.PeptideID
		if p, ok := r.s.peptides[l.PeptideID]; ok {
			d.PeptideName = p.Name
		}
	}
	return d
}

func (r *BottleRepo) CreateBatch(_ context.Context, bottles []*entity.Bottle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range bottles {
		if _, ok := r.s.bottles[b.ID]; ok {
			return domain.ErrDuplicate
		}
		c := *b
		r.s.bottles[b.ID] = &c
	}
	return nil
}

func (r *BottleRepo) GetByIDs(_ context.Context, orgID string, ids []string) ([]*entity.BottleDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[string]struct{}, len(ids))
	out := make([]*entity.BottleDetail, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b, ok := r.s.bottles[id]; ok && b.OrgID == orgID {
			out = append(out, r.detail(b))
		}
	}
	return out, nil
}

func (r *BottleRepo) ListAvailable(ctx context.Context, orgID, peptideID string) ([]*entity.BottleDetail, error) {
	return r.SelectFIFO(ctx, orgID, repository.FIFOSelector{PeptideID: peptideID}, 0)
}

func (r *BottleRepo) SelectFIFO(_ context.Context, orgID string, sel repository.FIFOSelector, limit int) ([]*entity.BottleDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lots := make(map[string]struct{}, len(sel.LotIDs))
	for _, id := range sel.LotIDs {
		lots[id] = struct{}{}
	}
	var out []*entity.BottleDetail
	for _, b := range r.s.bottles {
		if b.OrgID != orgID || b.Status != entity.BottleInStock {
			continue
		}
		d := r.detail(b)
		if len(lots) > 0 {
			if _, ok := lots[b.LotID]; !ok {
				continue
			}
		} else if d.PeptideID != sel.PeptideID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LotCreatedAt.Equal(out[j].LotCreatedAt) {
			return out[i].LotCreatedAt.Before(out[j].LotCreatedAt)
		}
		return out[i].UID < out[j].UID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BottleRepo) TransitionStatus(_ context.Context, orgID string, ids []string, from []entity.BottleStatus, to entity.BottleStatus) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	allowed := make(map[entity.BottleStatus]struct{}, len(from))
	for _, st := range from {
		allowed[st] = struct{}{}
	}
	var changed []string
	now := time.Now()
	for _, id := range ids {
		b, ok := r.s.bottles[id]
		if !ok || b.OrgID != orgID {
			continue
		}
		if _, ok := allowed[b.Status]; !ok {
			continue
		}
		b.Status = to
		b.UpdatedAt = now
		changed = append(changed, id)
	}
	return changed, nil
}

func (r *BottleRepo) CountByStatus(_ context.Context, orgID string) (map[entity.BottleStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[entity.BottleStatus]int)
	for _, b := range r.s.bottles {
		if b.OrgID == orgID {
			out[b.Status]++
		}
	}
	return out, nil
}

func (r *BottleRepo) CountByLot(_ context.Context, orgID string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]int)
	for _, b := range r.s.bottles {
		if b.OrgID == orgID {
			out[b.LotID]++
		}
	}
	return out, nil
}

func (r *BottleRepo) ListByStatus(_ context.Context, orgID string, statuses ...entity.BottleStatus) ([]*entity.BottleDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[entity.BottleStatus]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []*entity.BottleDetail
	for _, b := range r.s.bottles {
		if b.OrgID != orgID {
			continue
		}
		if _, ok := want[b.Status]; ok {
			out = append(out, r.detail(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *BottleRepo) ListByLot(_ context.Context, orgID, lotID string) ([]*entity.Bottle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Bottle
	for _, b := range r.s.bottles {
		if b.OrgID == orgID && b.LotID == lotID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *BottleRepo) DeleteInStockByLot(_ context.Context, orgID, lotID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, b := range r.s.bottles {
		if b.OrgID == orgID && b.LotID == lotID && b.Status == entity.BottleInStock {
			delete(r.s.bottles, id)
			n++
		}
	}
	return n, nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────

// MovementRepo MovementRepository en memoria.
type MovementRepo struct{ s *Store }

var _ repository.MovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.movements[m.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.movements[m.ID] = copyMovement(m)
	return nil
}

func (r *MovementRepo) GetByID(_ context.Context, orgID, id string) (*entity.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[id]
	if !ok || m.OrgID != orgID {
		return nil, nil
	}
	return copyMovement(m), nil
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, orgID, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r *MovementRepo) List(_ context.Context, orgID string, f repository.MovementFilter) ([]*entity.Movement, error) {
	r.s.mu.Lock()
	out := make([]*entity.Movement, 0)
	for _, m := range r.s.movements {
		if m.OrgID != orgID || (f.ContactID != "" && m.ContactID != f.ContactID) {
			continue
		}
		out = append(out, copyMovement(m))
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.After(out[j].MovementDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *MovementRepo) UpdateStatus(_ context.Context, orgID, id string, from, to entity.MovementStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[id]
	if !ok || m.OrgID != orgID || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = time.Now()
	return true, nil
}

func (r *MovementRepo) UpdatePayment(_ context.Context, in *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[in.ID]
	if !ok || m.OrgID != in.OrgID {
		return domain.ErrNotFound
	}
	m.AmountPaid, m.PaymentStatus, m.UpdatedAt = in.AmountPaid, in.PaymentStatus, in.UpdatedAt
	return nil
}

func (r *MovementRepo) Delete(_ context.Context, orgID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[id]
	if !ok || m.OrgID != orgID {
		return domain.ErrNotFound
	}
	delete(r.s.movements, id)
	return nil
}

func (r *MovementRepo) ActiveHolders(_ context.Context, orgID string, bottleIDs []string, excludeID string) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]struct{}, len(bottleIDs))
	for _, id := range bottleIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]string)
	for _, m := range r.s.movements {
		if m.OrgID != orgID || m.ID == excludeID || m.Status != entity.MovementActive {
			continue
		}
		for _, it := range m.Items {
			if _, ok := want[it.BottleID]; ok && it.BottleID != "" {
				out[it.BottleID] = m.ID
			}
		}
	}
	return out, nil
}

func (r *MovementRepo) ListActiveItems(_ context.Context, orgID string) ([]repository.ActiveItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.ActiveItem
	for _, m := range r.s.movements {
		if m.OrgID != orgID || m.Status != entity.MovementActive {
			continue
		}
		for _, it := range m.Items {
			out = append(out, repository.ActiveItem{MovementID: m.ID, ItemID: it.ID, BottleID: it.BottleID, Type: m.Type})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// ── Nevera digital ────────────────────────────────────────────────────────────

// VialRepo ClientInventoryRepository en memoria.
type VialRepo struct{ s *Store }

var _ repository.ClientInventoryRepository = (*VialRepo)(nil)

func (r *VialRepo) CreateBatch(_ context.Context, vials []*entity.ClientInventory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailVialCreate != nil {
		return r.s.FailVialCreate
	}
	for _, v := range vials {
		r.s.vials[v.ID] = copyVial(v)
	}
	return nil
}

func (r *VialRepo) GetByID(_ context.Context, orgID, id string) (*entity.ClientInventory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vials[id]
	if !ok || v.OrgID != orgID {
		return nil, nil
	}
	return copyVial(v), nil
}

func (r *VialRepo) list(match func(*entity.ClientInventory) bool) []*entity.ClientInventory {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.ClientInventory, 0)
	for _, v := range r.s.vials {
		if match(v) {
			out = append(out, copyVial(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *VialRepo) ListByContact(_ context.Context, orgID, contactID string, includeDepleted bool) ([]*entity.ClientInventory, error) {
	return r.list(func(v *entity.ClientInventory) bool {
		return v.OrgID == orgID && v.ContactID == contactID && (includeDepleted || v.Status == entity.VialActive)
	}), nil
}

func (r *VialRepo) ListByContactPeptide(_ context.Context, orgID, contactID, peptideID string) ([]*entity.ClientInventory, error) {
	return r.list(func(v *entity.ClientInventory) bool {
		return v.OrgID == orgID && v.ContactID == contactID && v.PeptideID == peptideID
	}), nil
}

func (r *VialRepo) DeleteByMovement(_ context.Context, orgID, movementID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, v := range r.s.vials {
		if v.OrgID == orgID && v.MovementID == movementID {
			delete(r.s.vials, id)
			n++
		}
	}
	return n, nil
}

func (r *VialRepo) UpdateReconstitution(_ context.Context, orgID, id string, vialSizeMg, waterMl, concentration decimal.Decimal, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vials[id]
	if !ok || v.OrgID != orgID || v.WaterAddedMl != nil {
		return false, nil
	}
	v.VialSizeMg, v.WaterAddedMl, v.ConcentrationMgMl, v.ReconstitutedAt, v.UpdatedAt = vialSizeMg, &waterMl, &concentration, &at, at
	return true, nil
}

func (r *VialRepo) UpdateSchedule(_ context.Context, orgID, id string, doseMg decimal.Decimal, days []entity.Weekday) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vials[id]
	if !ok || v.OrgID != orgID {
		return false, nil
	}
	v.DoseAmountMg = &doseMg
	v.DoseDays = append([]entity.Weekday(nil), days...)
	v.UpdatedAt = time.Now()
	return true, nil
}

func (r *VialRepo) CompareAndSetQuantity(_ context.Context, orgID, id string, expected, next decimal.Decimal, status entity.VialStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vials[id]
	if !ok || v.OrgID != orgID || !v.CurrentQuantityMg.Equal(expected) {
		return false, nil
	}
	v.CurrentQuantityMg, v.Status, v.UpdatedAt = next, status, time.Now()
	return true, nil
}

func (r *VialRepo) ForceEmpty(_ context.Context, orgID, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vials[id]
	if !ok || v.OrgID != orgID {
		return false, nil
	}
	v.CurrentQuantityMg, v.Status, v.UpdatedAt = decimal.Zero, entity.VialDepleted, time.Now()
	return true, nil
}

func (r *VialRepo) ListOrphans(_ context.Context, orgID string) ([]*entity.ClientInventory, error) {
	r.s.mu.Lock()
	movements := make(map[string]struct{}, len(r.s.movements))
	for id := range r.s.movements {
		movements[id] = struct{}{}
	}
	r.s.mu.Unlock()
	return r.list(func(v *entity.ClientInventory) bool {
		if v.OrgID != orgID || v.MovementID == "" {
			return false
		}
		_, ok := movements[v.MovementID]
		return !ok
	}), nil
}

// ── Catálogo y contactos ──────────────────────────────────────────────────────

// PeptideRepo PeptideRepository en memoria.
type PeptideRepo struct{ s *Store }

var _ repository.PeptideRepository = (*PeptideRepo)(nil)

func (r *PeptideRepo) GetByID(_ context.Context, orgID, id string) (*entity.Peptide, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.peptides[id]
	if !ok || p.OrgID != orgID {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// ContactRepo ContactRepository en memoria.
type ContactRepo struct{ s *Store }

var _ repository.ContactRepository = (*ContactRepo)(nil)

func (r *ContactRepo) GetByID(_ context.Context, orgID, id string) (*entity.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok || c.OrgID != orgID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return []T{}
		}
		in = in[offset:]
	}
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}
