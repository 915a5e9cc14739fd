package service

import (
	"context"
	"fmt"

	"attendance-engine/internal/model"
)

// SettingsAdminStore is the storage surface behind settings administration.
type SettingsAdminStore interface {
	GetSettings(ctx context.Context) (model.AttendanceSettings, error)
	PutSettings(ctx context.Context, settings model.AttendanceSettings) error
	GetOfficeLocations(ctx context.Context) ([]model.OfficeLocation, error)
	CreateOfficeLocation(ctx context.Context, loc *model.OfficeLocation) error
}

// SettingsService manages the attendance policy and the geofence table.
// Changes apply to sessions started after the update; running sessions keep
// the snapshot they were armed with.
type SettingsService struct {
	store SettingsAdminStore
}

func NewSettingsService(store SettingsAdminStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Settings(ctx context.Context) (model.AttendanceSettings, error) {
	return s.store.GetSettings(ctx)
}

func (s *SettingsService) UpdateSettings(ctx context.Context, settings model.AttendanceSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return s.store.PutSettings(ctx, settings)
}

func (s *SettingsService) Offices(ctx context.Context) ([]model.OfficeLocation, error) {
	return s.store.GetOfficeLocations(ctx)
}

func (s *SettingsService) AddOffice(ctx context.Context, loc *model.OfficeLocation) error {
	if loc.Name == "" {
		return fmt.Errorf("office name is required")
	}
	if loc.RadiusMeters <= 0 {
		return fmt.Errorf("office %q: radius must be positive, got %v", loc.Name, loc.RadiusMeters)
	}
	return s.store.CreateOfficeLocation(ctx, loc)
}
