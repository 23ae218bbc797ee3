package models

import "time"

type Admin struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
