package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// MovementLedger registra ventas, regalos y bajas. Reserva de botellas, movimiento, ítems y
// viales del cliente se confirman en una única transacción; las comisiones van después.
type MovementLedger struct {
	txRunner   TxRunner
	pool       *BottlePool
	movements  repository.MovementRepository
	peptides   repository.PeptideRepository
	contacts   repository.ContactRepository
	dispatcher SideEffectDispatcher
	pub        InvalidationPublisher
	log        zerolog.Logger
}

// NewMovementLedger construye el caso de uso. dispatcher puede ser nil (sin comisiones).
func NewMovementLedger(
	txRunner TxRunner,
	pool *BottlePool,
	movements repository.MovementRepository,
	peptides repository.PeptideRepository,
	contacts repository.ContactRepository,
	dispatcher SideEffectDispatcher,
	pub InvalidationPublisher,
	log zerolog.Logger,
) *MovementLedger {
	return &MovementLedger{
		txRunner:   txRunner,
		pool:       pool,
		movements:  movements,
		peptides:   peptides,
		contacts:   contacts,
		dispatcher: dispatcher,
		pub:        pub,
		log:        log,
	}
}

// ItemInput botella elegida explícitamente con su precio.
type ItemInput struct {
	BottleID    string
	PriceAtSale decimal.Decimal
}

// FIFOLine pide Count botellas de un péptido (o de ciertos lotes) en orden FIFO.
type FIFOLine struct {
	PeptideID string
	LotIDs    []string
	Count     int
	UnitPrice decimal.Decimal
}

// MovementInput entrada común de venta y regalo.
type MovementInput struct {
	OrgID         string
	ContactID     string
	CreatedBy     string
	Items         []ItemInput
	Lines         []FIFOLine
	PaymentStatus string
	AmountPaid    decimal.Decimal
	MovementDate  time.Time
	Notes         string
}

// AdjustmentInput baja de botellas en stock (dañadas, perdidas, vencidas).
type AdjustmentInput struct {
	OrgID        string
	CreatedBy    string
	BottleIDs    []string
	Status       string
	MovementDate time.Time
	Notes        string
}

// RecordSale registra una venta con botellas explícitas y/o líneas FIFO.
func (uc *MovementLedger) RecordSale(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	return uc.record(ctx, entity.MovementSale, "", in)
}

// RecordSaleFIFO venta donde el sistema elige las botellas más antiguas.
func (uc *MovementLedger) RecordSaleFIFO(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	if len(in.Lines) == 0 {
		return nil, domain.Invalid("lines", "requerido")
	}
	if len(in.Items) > 0 {
		return nil, domain.Invalid("items", "no se admiten botellas explícitas en una venta FIFO")
	}
	return uc.record(ctx, entity.MovementSale, "", in)
}

// RecordGiveaway regalo: precios en 0 y pago forzado a paid con monto 0.
func (uc *MovementLedger) RecordGiveaway(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	items := make([]ItemInput, len(in.Items))
	for i, it := range in.Items {
		items[i] = ItemInput{BottleID: it.BottleID}
	}
	lines := make([]FIFOLine, len(in.Lines))
	for i, l := range in.Lines {
		l.UnitPrice = decimal.Zero
		lines[i] = l
	}
	in.Items, in.Lines = items, lines
	in.PaymentStatus = string(entity.PaymentPaid)
	in.AmountPaid = decimal.Zero
	return uc.record(ctx, entity.MovementGiveaway, "", in)
}

// RecordAdjustment da de baja botellas in_stock con un movimiento de ajuste.
func (uc *MovementLedger) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*entity.Movement, error) {
	status, err := entity.ParseBottleStatus(in.Status)
	if err != nil || !status.WriteOff() {
		return nil, domain.Invalid("status", "debe ser damaged, lost o expired")
	}
	if len(in.BottleIDs) == 0 {
		return nil, domain.Invalid("bottle_ids", "requerido")
	}
	items := make([]ItemInput, len(in.BottleIDs))
	for i, id := range in.BottleIDs {
		items[i] = ItemInput{BottleID: id}
	}
	return uc.record(ctx, entity.MovementAdjustment, status, MovementInput{
		OrgID:         in.OrgID,
		CreatedBy:     in.CreatedBy,
		Items:         items,
		PaymentStatus: string(entity.PaymentPaid),
		MovementDate:  in.MovementDate,
		Notes:         in.Notes,
	})
}

func (in MovementInput) validate(t entity.MovementType) error {
	if in.OrgID == "" {
		return domain.Invalid("org_id", "requerido")
	}
	if t.TransfersCustody() && in.ContactID == "" {
		return domain.Invalid("contact_id", "requerido")
	}
	if len(in.Items) == 0 && len(in.Lines) == 0 {
		return domain.Invalid("items", "se requiere al menos una botella")
	}
	for _, it := range in.Items {
		if it.BottleID == "" {
			return domain.Invalid("bottle_id", "requerido")
		}
		if it.PriceAtSale.LessThan(decimal.Zero) {
			return domain.Invalid("price_at_sale", "no puede ser negativo")
		}
	}
	for _, l := range in.Lines {
		if l.Count <= 0 {
			return domain.Invalid("count", "debe ser mayor que 0")
		}
		if l.PeptideID == "" && len(l.LotIDs) == 0 {
			return domain.Invalid("peptide_id", "requerido")
		}
		if l.UnitPrice.LessThan(decimal.Zero) {
			return domain.Invalid("unit_price", "no puede ser negativo")
		}
	}
	if in.AmountPaid.LessThan(decimal.Zero) {
		return domain.Invalid("amount_paid", "no puede ser negativo")
	}
	return nil
}

// settle resuelve monto y estado de pago. Sin estado explícito se deriva del monto;
// "paid" sin monto se interpreta como cobro total.
func settle(status string, amountPaid, total decimal.Decimal) (decimal.Decimal, entity.PaymentStatus, error) {
	amountPaid = amountPaid.Round(2)
	if amountPaid.GreaterThan(total) {
		return decimal.Zero, "", domain.Invalid("amount_paid", "supera el total del movimiento")
	}
	if status == "" {
		return amountPaid, inventory.PaymentStatusFor(amountPaid, total), nil
	}
	ps, err := entity.ParsePaymentStatus(status)
	if err != nil {
		return decimal.Zero, "", domain.Invalid("payment_status", err.Error())
	}
	if ps == entity.PaymentPaid && amountPaid.IsZero() {
		amountPaid = total
	}
	if derived := inventory.PaymentStatusFor(amountPaid, total); derived != ps {
		return decimal.Zero, "", domain.Invalid("payment_status",
			fmt.Sprintf("%s no corresponde a un cobro de %s sobre %s", ps, amountPaid.String(), total.String()))
	}
	return amountPaid, ps, nil
}

func (uc *MovementLedger) record(ctx context.Context, t entity.MovementType, writeOff entity.BottleStatus, in MovementInput) (*entity.Movement, error) {
	if err := in.validate(t); err != nil {
		return nil, err
	}

	var contact *entity.Contact
	if t.TransfersCustody() {
		c, err := uc.contacts.GetByID(ctx, in.OrgID, in.ContactID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, domain.ErrNotFound
		}
		contact = c
	}

	now := time.Now()
	date := in.MovementDate
	if date.IsZero() {
		date = now
	}
	m := &entity.Movement{
		ID:             uuid.New().String(),
		OrgID:          in.OrgID,
		Type:           t,
		ContactID:      in.ContactID,
		Status:         entity.MovementActive,
		MovementDate:   date,
		Notes:          in.Notes,
		CreatedBy:      in.CreatedBy,
		WriteOffStatus: writeOff,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	target := m.TargetBottleStatus()
	catalog := newCatalogLookup(uc.peptides, in.OrgID)
	var vials []*entity.ClientInventory

	err := uc.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		m.Items = m.Items[:0]
		vials = vials[:0]
		var reserved []*entity.BottleDetail

		if len(in.Items) > 0 {
			ids := make([]string, len(in.Items))
			for i, it := range in.Items {
				ids[i] = it.BottleID
			}
			got, err := uc.pool.ReserveInTx(ctx, r, in.OrgID, ReserveRequest{BottleIDs: ids}, target)
			if err != nil {
				return err
			}
			for i, b := range got {
				m.Items = append(m.Items, newItem(m, b.ID, in.Items[i].PriceAtSale, now))
			}
			reserved = append(reserved, got...)
		}
		for _, l := range in.Lines {
			got, err := uc.pool.ReserveInTx(ctx, r, in.OrgID, ReserveRequest{PeptideID: l.PeptideID, LotIDs: l.LotIDs, Count: l.Count}, target)
			if err != nil {
				return err
			}
			for _, b := range got {
				m.Items = append(m.Items, newItem(m, b.ID, l.UnitPrice, now))
			}
			reserved = append(reserved, got...)
		}

		amount, status, err := settle(in.PaymentStatus, in.AmountPaid, m.Total())
		if err != nil {
			return err
		}
		m.AmountPaid, m.PaymentStatus = amount, status

		if err := r.Movements.Create(ctx, m); err != nil {
			return err
		}

		if !t.TransfersCustody() {
			return nil
		}
		for _, b := range reserved {
			p, err := catalog.get(ctx, b.PeptideID)
			if err != nil {
				return err
			}
			if !p.Reconstitutable {
				continue
			}
			size := vialSize(p)
			vials = append(vials, &entity.ClientInventory{
				ID:                uuid.New().String(),
				OrgID:             in.OrgID,
				ContactID:         in.ContactID,
				PeptideID:         b.PeptideID,
				MovementID:        m.ID,
				BatchNumber:       b.LotNumber,
				VialSizeMg:        size,
				InitialQuantityMg: size,
				CurrentQuantityMg: size,
				Status:            entity.VialActive,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
		if len(vials) == 0 {
			return nil
		}
		return r.Vials.CreateBatch(ctx, vials)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("org_id", m.OrgID).
		Str("movement_id", m.ID).
		Str("type", string(m.Type)).
		Int("items", len(m.Items)).
		Int("vials", len(vials)).
		Msg("movimiento registrado")

	signals := []Invalidation{
		{OrgID: m.OrgID, Entity: EntityMovement, IDs: []string{m.ID}},
		{OrgID: m.OrgID, Entity: EntityBottle, IDs: m.BottleIDs()},
	}
	if len(vials) > 0 {
		ids := make([]string, len(vials))
		for i, v := range vials {
			ids[i] = v.ID
		}
		signals = append(signals, Invalidation{OrgID: m.OrgID, Entity: EntityClientInventory, IDs: ids})
	}
	publish(ctx, uc.pub, uc.log, signals...)

	if m.Type == entity.MovementSale && contact != nil && contact.AssignedRepID != "" {
		dispatch(ctx, uc.dispatcher, uc.log, SideEffectJob{
			Kind:       JobCommission,
			OrgID:      m.OrgID,
			MovementID: m.ID,
			ContactID:  contact.ID,
			RepID:      contact.AssignedRepID,
			Total:      m.Total(),
		})
	}
	return m, nil
}

func newItem(m *entity.Movement, bottleID string, price decimal.Decimal, at time.Time) entity.MovementItem {
	return entity.MovementItem{
		ID:          uuid.New().String(),
		MovementID:  m.ID,
		BottleID:    bottleID,
		PriceAtSale: price.Round(2),
		CreatedAt:   at,
	}
}

// RecordPayment suma un abono a una venta activa.
func (uc *MovementLedger) RecordPayment(ctx context.Context, orgID, movementID string, amount decimal.Decimal) (*entity.Movement, error) {
	var out *entity.Movement
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		m, err := r.Movements.GetForUpdate(ctx, orgID, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Status == entity.MovementReturned {
			return domain.Conflict("el movimiento fue devuelto")
		}
		if m.Type != entity.MovementSale {
			return domain.Conflict("solo las ventas admiten abonos")
		}
		paid, status, err := inventory.ApplyPayment(m.PaymentStatus, m.AmountPaid, amount.Round(2), m.Total())
		if err != nil {
			return err
		}
		m.AmountPaid, m.PaymentStatus, m.UpdatedAt = paid, status, time.Now()
		if err := r.Movements.UpdatePayment(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, uc.pub, uc.log, Invalidation{OrgID: orgID, Entity: EntityMovement, IDs: []string{movementID}})
	return out, nil
}

// GetMovement obtiene un movimiento con sus ítems.
func (uc *MovementLedger) GetMovement(ctx context.Context, orgID, id string) (*entity.Movement, error) {
	m, err := uc.movements.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// ListMovements lista movimientos, opcionalmente de un contacto.
func (uc *MovementLedger) ListMovements(ctx context.Context, orgID string, f repository.MovementFilter) ([]*entity.Movement, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return uc.movements.List(ctx, orgID, f)
}

// catalogLookup memoriza productos dentro de una misma operación.
type catalogLookup struct {
	repo  repository.PeptideRepository
	orgID string
	seen  map[string]*entity.Peptide
}

func newCatalogLookup(repo repository.PeptideRepository, orgID string) *catalogLookup {
	return &catalogLookup{repo: repo, orgID: orgID, seen: make(map[string]*entity.Peptide)}
}

func (c *catalogLookup) get(ctx context.Context, id string) (*entity.Peptide, error) {
	if p, ok := c.seen[id]; ok {
		return p, nil
	}
	p, err := c.repo.GetByID(ctx, c.orgID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.IntegrityError{Kind: domain.IntegrityUnresolvedBottle, EntityID: id, Detail: "producto inexistente para la botella"}
	}
	c.seen[id] = p
	return p, nil
}

// vialSize tamaño del catálogo; si falta se infiere del nombre.
func vialSize(p *entity.Peptide) decimal.Decimal {
	if p.DefaultVialSizeMg != nil && p.DefaultVialSizeMg.GreaterThan(decimal.Zero) {
		return *p.DefaultVialSizeMg
	}
	return inventory.ParseVialSize(p.Name)
}
