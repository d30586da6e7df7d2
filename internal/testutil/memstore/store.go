// Package memstore implementa los repositorios del ledger en memoria para pruebas de casos de uso.
// Las transacciones se serializan y se revierten restaurando una copia del estado.
package memstore

import (
	"context"
	"sync"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// Store estado compartido por todos los repositorios.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	lots      map[string]*entity.Lot
	bottles   map[string]*entity.Bottle
	movements map[string]*entity.Movement
	vials     map[string]*entity.ClientInventory
	peptides  map[string]*entity.Peptide
	contacts  map[string]*entity.Contact

	// FailVialCreate si no es nil, CreateBatch de viales falla con este error.
	FailVialCreate error
	// Commits transacciones confirmadas.
	Commits int
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		lots:      make(map[string]*entity.Lot),
		bottles:   make(map[string]*entity.Bottle),
		movements: make(map[string]*entity.Movement),
		vials:     make(map[string]*entity.ClientInventory),
		peptides:  make(map[string]*entity.Peptide),
		contacts:  make(map[string]*entity.Contact),
	}
}

// Repos repositorios sin transacción.
func (s *Store) Repos() inventory.Repos {
	return inventory.Repos{
		Lots:      s.Lots(),
		Bottles:   s.Bottles(),
		Movements: s.Movements(),
		Vials:     s.Vials(),
	}
}

// Lots repositorio de lotes.
func (s *Store) Lots() *LotRepo { return &LotRepo{s: s} }

// Bottles repositorio de botellas.
func (s *Store) Bottles() *BottleRepo { return &BottleRepo{s: s} }

// Movements repositorio de movimientos.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Vials repositorio de la nevera digital.
func (s *Store) Vials() *VialRepo { return &VialRepo{s: s} }

// Peptides catálogo.
func (s *Store) Peptides() *PeptideRepo { return &PeptideRepo{s: s} }

// Contacts contactos.
func (s *Store) Contacts() *ContactRepo { return &ContactRepo{s: s} }

// TxRunner devuelve un runner que serializa transacciones sobre este store.
func (s *Store) TxRunner() inventory.TxRunner { return txRunner{s: s} }

type txRunner struct{ s *Store }

// Run ejecuta fn con exclusión mutua; si fn falla el estado vuelve a la copia inicial.
func (r txRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	snap := r.s.snapshot()
	if err := fn(ctx, r.s.Repos()); err != nil {
		r.s.restore(snap)
		return err
	}
	r.s.mu.Lock()
	r.s.Commits++
	r.s.mu.Unlock()
	return nil
}

type snapshot struct {
	lots      map[string]*entity.Lot
	bottles   map[string]*entity.Bottle
	movements map[string]*entity.Movement
	vials     map[string]*entity.ClientInventory
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		lots:      make(map[string]*entity.Lot, len(s.lots)),
		bottles:   make(map[string]*entity.Bottle, len(s.bottles)),
		movements: make(map[string]*entity.Movement, len(s.movements)),
		vials:     make(map[string]*entity.ClientInventory, len(s.vials)),
	}
	for k, v := range s.lots {
		c := *v
		snap.lots[k] = &c
	}
	for k, v := range s.bottles {
		c := *v
		snap.bottles[k] = &c
	}
	for k, v := range s.movements {
		snap.movements[k] = copyMovement(v)
	}
	for k, v := range s.vials {
		snap.vials[k] = copyVial(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots, s.bottles, s.movements, s.vials = snap.lots, snap.bottles, snap.movements, snap.vials
}

// PutPeptide agrega un producto al catálogo.
func (s *Store) PutPeptide(p *entity.Peptide) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.peptides[p.ID] = &c
}

// PutContact agrega un contacto.
func (s *Store) PutContact(c *entity.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contacts[c.ID] = &cp
}

// PutMovement guarda un movimiento tal cual, sin validar sus botellas (datos corruptos en pruebas).
func (s *Store) PutMovement(m *entity.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements[m.ID] = copyMovement(m)
}

// PutBottle guarda una botella tal cual.
func (s *Store) PutBottle(b *entity.Bottle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *b
	s.bottles[b.ID] = &c
}

// PutVial guarda un vial tal cual.
func (s *Store) PutVial(v *entity.ClientInventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vials[v.ID] = copyVial(v)
}

// DeleteBottle borra una botella sin tocar sus referencias.
func (s *Store) DeleteBottle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bottles, id)
}

// BottleStatus estado actual de una botella ("" si no existe).
func (s *Store) BottleStatus(id string) entity.BottleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bottles[id]; ok {
		return b.Status
	}
	return ""
}

// CountBottles botellas de un lote con el estado dado ("" = todas).
func (s *Store) CountBottles(lotID string, status entity.BottleStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bottles {
		if b.LotID == lotID && (status == "" || b.Status == status) {
			n++
		}
	}
	return n
}

// VialsForMovement viales que referencian el movimiento.
func (s *Store) VialsForMovement(movementID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.vials {
		if v.MovementID == movementID {
			n++
		}
	}
	return n
}

// MovementCount total de movimientos guardados.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

func copyMovement(m *entity.Movement) *entity.Movement {
	c := *m
	c.Items = append([]entity.MovementItem(nil), m.Items...)
	return &c
}

func copyVial(v *entity.ClientInventory) *entity.ClientInventory {
	c := *v
	c.DoseDays = append([]entity.Weekday(nil), v.DoseDays...)
	if v.WaterAddedMl != nil {
		w := *v.WaterAddedMl
		c.WaterAddedMl = &w
	}
	if v.ConcentrationMgMl != nil {
		k := *v.ConcentrationMgMl
		c.ConcentrationMgMl = &k
	}
	if v.DoseAmountMg != nil {
		d := *v.DoseAmountMg
		c.DoseAmountMg = &d
	}
	if v.ReconstitutedAt != nil {
		t := *v.ReconstitutedAt
		c.ReconstitutedAt = &t
	}
	return &c
}
