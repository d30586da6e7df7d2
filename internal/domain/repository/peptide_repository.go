package repository

import (
	"context"

	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

// PeptideRepository puerto de lectura del catálogo de productos (colaborador externo).
type PeptideRepository interface {
	// GetByID devuelve nil, nil si el producto no existe en la organización.
	GetByID(ctx context.Context, orgID, id string) (*entity.Peptide, error)
}

// ContactRepository puerto de lectura de contactos.
type ContactRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*entity.Contact, error)
}
