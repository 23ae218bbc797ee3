package models

import "time"

// ServerConfig is the single runtime settings document shown to clients.
type ServerConfig struct {
	MaintenanceMode bool
	MinAppVersion   string
	Banner          string
	UpdatedAt       time.Time
}
