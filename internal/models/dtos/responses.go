package dtos

import "time"

// --- Controller endpoints ----

type APIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// ---- SYNC ----

type MappingResponse struct {
	EntityType        string     `json:"entity_type"`
	LocalID           string     `json:"local_id"`
	ExternalID        string     `json:"external_id,omitempty"`
	ExternalDocNumber string     `json:"external_doc_number,omitempty"`
	SyncStatus        string     `json:"sync_status"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type SyncLogResponse struct {
	ID           uint           `json:"id"`
	Action       string         `json:"action"`
	Status       string         `json:"status"`
	ExternalID   string         `json:"external_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type SyncLogListResponse struct {
	EntityType string            `json:"entity_type"`
	LocalID    string            `json:"local_id"`
	Entries    []SyncLogResponse `json:"entries"`
}

// ---- CONNECTION ----

type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

type ConnectionStatusResponse struct {
	Connected             bool       `json:"connected"`
	RealmID               string     `json:"realm_id,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
	ConnectedBy           string     `json:"connected_by,omitempty"`
	ConnectedAt           *time.Time `json:"connected_at,omitempty"`
}

// ---- LOCKED PERIOD ----

type LockedPeriodResponse struct {
	Enabled    bool      `json:"enabled"`
	CutoffDate string    `json:"cutoff_date,omitempty"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ---- HEALTH ----

type DependencyStatus struct {
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	UpSince      time.Time                   `json:"up_since"`
	Uptime       string                      `json:"uptime"`
}
