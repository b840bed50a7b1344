package model

import "time"

// RegistryStats is the live view served at /stats and rendered by the
// monitor command.
type RegistryStats struct {
	TotalTables      int           `json:"total_tables"`
	TotalSubscribers int           `json:"total_subscribers"`
	Uptime           time.Duration `json:"uptime"`
	Tables           []TableStats  `json:"tables,omitempty"`
}

type TableStats struct {
	TableID     int64 `json:"table_id"`
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	Subscribers int   `json:"subscribers"`
	ActiveLocks int   `json:"active_locks"`
}
