package entity

// Contact contraparte de un movimiento (cliente). AssignedRepID es el partner que cobra comisión.
type Contact struct {
	ID            string
	OrgID         string
	Name          string
	Phone         string
	AssignedRepID string
}
