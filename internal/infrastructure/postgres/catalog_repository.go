package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
	"github.com/jhoicas/peptide-ledger/internal/domain/repository"
)

var (
	_ repository.PeptideRepository = (*PeptideRepo)(nil)
	_ repository.ContactRepository = (*ContactRepo)(nil)
)

// PeptideRepo lectura del catálogo de productos.
type PeptideRepo struct {
	q Querier
}

// NewPeptideRepository construye el lector del catálogo.
func NewPeptideRepository(q Querier) *PeptideRepo {
	return &PeptideRepo{q: q}
}

// GetByID producto por ID o nil, nil.
func (r *PeptideRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Peptide, error) {
	query := `
		SELECT id, org_id, name, reconstitutable, default_vial_size_mg, default_dose_mg, created_at
		FROM peptides WHERE org_id = $1 AND id::text = $2`
	var p entity.Peptide
	err := r.q.QueryRow(ctx, query, orgID, id).Scan(
		&p.ID, &p.OrgID, &p.Name, &p.Reconstitutable, &p.DefaultVialSizeMg, &p.DefaultDoseMg, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get peptide: %w", err)
	}
	return &p, nil
}

// ContactRepo lectura de contactos.
type ContactRepo struct {
	q Querier
}

// NewContactRepository construye el lector de contactos.
func NewContactRepository(q Querier) *ContactRepo {
	return &ContactRepo{q: q}
}

// GetByID contacto por ID o nil, nil.
func (r *ContactRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Contact, error) {
	query := `
		SELECT id, org_id, name, COALESCE(phone, ''), COALESCE(assigned_rep_id::text, '')
		FROM contacts WHERE org_id = $1 AND id::text = $2`
	var c entity.Contact
	err := r.q.QueryRow(ctx, query, orgID, id).Scan(&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.AssignedRepID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &c, nil
}
