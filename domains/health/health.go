package health

import "context"

type ComponentStatus string

const (
	StatusOk    ComponentStatus = "OK"
	StatusError ComponentStatus = "ERROR"
)

type Status struct {
	Database   ComponentStatus `json:"database"`
	Gateway    ComponentStatus `json:"gateway"`
	ActiveRuns int             `json:"active_runs"`
	Version    string          `json:"version"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) (Status, error)
}
