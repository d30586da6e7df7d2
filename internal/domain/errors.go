package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrIntegrity         = errors.New("violación de integridad de datos")
	ErrDependency        = errors.New("fallo de dependencia externa")
)

// ValidationError entrada mal formada; se rechaza antes de cualquier escritura.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError el estado actual impide la operación (botella ya vendida, stock insuficiente,
// movimiento ya devuelto). El caller decide si reintenta.
type ConflictError struct {
	Reason    string
	BottleIDs []string
	// Insufficient indica que faltan unidades disponibles (InsufficientStock).
	Insufficient bool
}

func (e *ConflictError) Error() string {
	if len(e.BottleIDs) == 0 {
		return "conflicto: " + e.Reason
	}
	return fmt.Sprintf("conflicto: %s (botellas: %s)", e.Reason, strings.Join(e.BottleIDs, ", "))
}

// Is permite errors.Is(err, ErrConflict) y, si aplica, errors.Is(err, ErrInsufficientStock).
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	return e.Insufficient && target == ErrInsufficientStock
}

// Conflict construye un ConflictError genérico.
func Conflict(reason string, bottleIDs ...string) error {
	return &ConflictError{Reason: reason, BottleIDs: bottleIDs}
}

// InsufficientStock construye el ConflictError de stock insuficiente.
func InsufficientStock(requested, available int) error {
	return &ConflictError{
		Reason:       fmt.Sprintf("stock insuficiente: solicitadas %d, disponibles %d", requested, available),
		Insufficient: true,
	}
}

// Tipos de hallazgo de integridad.
const (
	IntegrityLotBottleCount   = "lot_bottle_count"
	IntegrityGhostBottle      = "ghost_bottle"
	IntegrityUnresolvedBottle = "unresolved_bottle"
	IntegrityStaleItem        = "stale_movement_item"
	IntegrityOrphanVial       = "orphan_client_inventory"
)

// IntegrityError datos corruptos detectados (nunca se corrigen adivinando).
type IntegrityError struct {
	Kind     string
	EntityID string
	Detail   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integridad [%s] %s: %s", e.Kind, e.EntityID, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// DependencyError un efecto secundario (comisión, notificación) falló después de confirmar
// la venta. No invalida el movimiento.
type DependencyError struct {
	Dependency string
	MovementID string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependencia %s (movimiento %s): %v", e.Dependency, e.MovementID, e.Err)
}

// Is permite errors.Is(err, ErrDependency) sin perder la cadena de Err.
func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

func (e *DependencyError) Unwrap() error { return e.Err }
