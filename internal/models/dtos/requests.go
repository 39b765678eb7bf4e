package dtos

// LockedPeriodRequest sets or clears the tenant's accounting lock.
// CutoffDate is YYYY-MM-DD and required when Enabled is true.
type LockedPeriodRequest struct {
	Enabled    bool   `json:"enabled"`
	CutoffDate string `json:"cutoff_date"`
}
