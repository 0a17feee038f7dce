// Package app provides application use cases.
package app

import "context"

// HealthUsecase defines the health check use case.
type HealthUsecase interface {
	Handle(ctx context.Context) (HealthResult, error)
}

// HealthResult represents the health check response.
type HealthResult struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Network   string `json:"network,omitempty"`
	Owner     string `json:"owner,omitempty"`
	PackageID string `json:"package_id,omitempty"`
	// Notifications is "off" without a webhook.
	Notifications string `json:"notifications,omitempty"`
}

// HealthService implements HealthUsecase.
type HealthService struct {
	Version string
	Network string
	// OwnerFunc reports the account currently synced.
	OwnerFunc func() string
	PackageID string
	// NotifyFunc reports the Discord notifier state; nil means off.
	NotifyFunc func() string
}

// Handle returns the current health status.
func (s HealthService) Handle(ctx context.Context) (HealthResult, error) {
	res := HealthResult{
		Status:    "ok",
		Version:   s.Version,
		Network:   s.Network,
		PackageID: s.PackageID,
	}
	if s.OwnerFunc != nil {
		res.Owner = s.OwnerFunc()
	}
	res.Notifications = "off"
	if s.NotifyFunc != nil {
		res.Notifications = s.NotifyFunc()
	}
	return res, nil
}
