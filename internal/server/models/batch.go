package models

import "time"

// Batch is a class offered through the portal. BatchID is the id the
// upstream platform knows it by.
type Batch struct {
	ID          string
	BatchID     string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
