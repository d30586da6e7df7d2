package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/peptide-ledger/internal/domain"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

// LotRegistry registra lotes recibidos y crea sus botellas en la misma transacción.
type LotRegistry struct {
	txRunner TxRunner
	lots     repository.LotRepository
	peptides repository.PeptideRepository
	pub      InvalidationPublisher
	log      zerolog.Logger
}

// NewLotRegistry construye el caso de uso.
func NewLotRegistry(
	txRunner TxRunner,
	lots repository.LotRepository,
	peptides repository.PeptideRepository,
	pub InvalidationPublisher,
	log zerolog.Logger,
) *LotRegistry {
	return &LotRegistry{txRunner: txRunner, lots: lots, peptides: peptides, pub: pub, log: log}
}

// ReceiveLotInput entrada para recibir un lote.
type ReceiveLotInput struct {
	OrgID            string
	PeptideID        string
	LotNumber        string
	CostPerUnit      decimal.Decimal
	QuantityReceived int
	ReceivedDate     time.Time
	ExpiryDate       *time.Time
	Notes            string
}

func (in ReceiveLotInput) validate() error {
	if in.OrgID == "" {
		return domain.Invalid("org_id", "requerido")
	}
	if in.PeptideID == "" {
		return domain.Invalid("peptide_id", "requerido")
	}
	if strings.TrimSpace(in.LotNumber) == "" {
		return domain.Invalid("lot_number", "requerido")
	}
	if in.QuantityReceived <= 0 {
		return domain.Invalid("quantity_received", "debe ser mayor que 0")
	}
	if in.CostPerUnit.LessThan(decimal.Zero) {
		return domain.Invalid("cost_per_unit", "no puede ser negativo")
	}
	return nil
}

// ReceiveLot crea el lote y exactamente QuantityReceived botellas in_stock, todo o nada.
func (uc *LotRegistry) ReceiveLot(ctx context.Context, in ReceiveLotInput) (*entity.Lot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	peptide, err := uc.peptides.GetByID(ctx, in.OrgID, in.PeptideID)
	if err != nil {
		return nil, err
	}
	if peptide == nil {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	received := in.ReceivedDate
	if received.IsZero() {
		received = now
	}
	lot := &entity.Lot{
		ID:               uuid.New().String(),
		OrgID:            in.OrgID,
		PeptideID:        in.PeptideID,
		LotNumber:        strings.TrimSpace(in.LotNumber),
		CostPerUnit:      in.CostPerUnit.Round(2),
		QuantityReceived: in.QuantityReceived,
		ReceivedDate:     received,
		ExpiryDate:       in.ExpiryDate,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	bottles := make([]*entity.Bottle, 0, in.QuantityReceived)
	for i := 1; i <= in.QuantityReceived; i++ {
		bottles = append(bottles, &entity.Bottle{
			ID:        uuid.New().String(),
			OrgID:     in.OrgID,
			LotID:     lot.ID,
			UID:       entity.BottleUID(lot.LotNumber, i),
			Status:    entity.BottleInStock,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Lots.Create(ctx, lot); err != nil {
			return err
		}
		return r.Bottles.CreateBatch(ctx, bottles)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("org_id", lot.OrgID).Str("lot_id", lot.ID).Int("bottles", len(bottles)).Msg("lote recibido")
	publish(ctx, uc.pub, uc.log,
		Invalidation{OrgID: lot.OrgID, Entity: EntityLot, IDs: []string{lot.ID}},
		Invalidation{OrgID: lot.OrgID, Entity: EntityBottle},
	)
	return lot, nil
}

// UpdateLotInput corrección administrativa; nil = sin cambio.
type UpdateLotInput struct {
	LotNumber   *string
	CostPerUnit *decimal.Decimal
	ExpiryDate  *time.Time
	Notes       *string
}

// UpdateLot aplica una corrección. La cantidad recibida no se edita: rompería lote ↔ botellas.
func (uc *LotRegistry) UpdateLot(ctx context.Context, orgID, id string, in UpdateLotInput) (*entity.Lot, error) {
	lot, err := uc.lots.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	if in.LotNumber != nil {
		if strings.TrimSpace(*in.LotNumber) == "" {
			return nil, domain.Invalid("lot_number", "requerido")
		}
		lot.LotNumber = strings.TrimSpace(*in.LotNumber)
	}
	if in.CostPerUnit != nil {
		if in.CostPerUnit.LessThan(decimal.Zero) {
			return nil, domain.Invalid("cost_per_unit", "no puede ser negativo")
		}
		lot.CostPerUnit = in.CostPerUnit.Round(2)
	}
	if in.ExpiryDate != nil {
		lot.ExpiryDate = in.ExpiryDate
	}
	if in.Notes != nil {
		lot.Notes = *in.Notes
	}
	lot.UpdatedAt = time.Now()
	if err := uc.lots.Update(ctx, lot); err != nil {
		return nil, err
	}
	publish(ctx, uc.pub, uc.log, Invalidation{OrgID: orgID, Entity: EntityLot, IDs: []string{id}})
	return lot, nil
}

// GetLot obtiene un lote.
func (uc *LotRegistry) GetLot(ctx context.Context, orgID, id string) (*entity.Lot, error) {
	lot, err := uc.lots.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

// ListLots lista lotes de la organización, más recientes primero.
func (uc *LotRegistry) ListLots(ctx context.Context, orgID string, limit, offset int) ([]*entity.Lot, error) {
	return uc.lots.ListByOrg(ctx, orgID, limit, offset)
}

// DeleteLot borra un lote solo si todas sus botellas siguen in_stock.
func (uc *LotRegistry) DeleteLot(ctx context.Context, orgID, id string) error {
	err := uc.txRunner.Run(ctx, func(ctx context.Context, r Repos) error {
		lot, err := r.Lots.GetByID(ctx, orgID, id)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		bottles, err := r.Bottles.ListByLot(ctx, orgID, id)
		if err != nil {
			return err
		}
		var busy []string
		for _, b := range bottles {
			if b.Status != entity.BottleInStock {
				busy = append(busy, b.ID)
			}
		}
		if len(busy) > 0 {
			return domain.Conflict("el lote tiene botellas fuera de stock", busy...)
		}
		deleted, err := r.Bottles.DeleteInStockByLot(ctx, orgID, id)
		if err != nil {
			return err
		}
		if deleted != len(bottles) {
			// alguna botella salió de stock después de la lectura: lo que quedó es lo ocupado
			left, err := r.Bottles.ListByLot(ctx, orgID, id)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(left))
			for _, b := range left {
				ids = append(ids, b.ID)
			}
			return domain.Conflict("el lote tiene botellas fuera de stock", ids...)
		}
		return r.Lots.Delete(ctx, orgID, id)
	})
	if err != nil {
		return err
	}
	publish(ctx, uc.pub, uc.log,
		Invalidation{OrgID: orgID, Entity: EntityLot, IDs: []string{id}},
		Invalidation{OrgID: orgID, Entity: EntityBottle},
	)
	return nil
}
