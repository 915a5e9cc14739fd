package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-engine/internal/model"
)

type fakeSettingsStore struct {
	settings model.AttendanceSettings
	offices  []model.OfficeLocation
}

func (f *fakeSettingsStore) GetSettings(context.Context) (model.AttendanceSettings, error) {
	return f.settings, nil
}

func (f *fakeSettingsStore) PutSettings(_ context.Context, settings model.AttendanceSettings) error {
	f.settings = settings
	return nil
}

func (f *fakeSettingsStore) GetOfficeLocations(context.Context) ([]model.OfficeLocation, error) {
	return f.offices, nil
}

func (f *fakeSettingsStore) CreateOfficeLocation(_ context.Context, loc *model.OfficeLocation) error {
	f.offices = append(f.offices, *loc)
	return nil
}

func TestUpdateSettingsValidates(t *testing.T) {
	store := &fakeSettingsStore{settings: model.DefaultSettings()}
	svc := NewSettingsService(store)

	updated := model.DefaultSettings()
	updated.IdleThresholdMinutes = 20
	require.NoError(t, svc.UpdateSettings(context.Background(), updated))

	got, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, got.IdleThresholdMinutes)

	broken := model.DefaultSettings()
	broken.IdleThresholdMinutes = -1
	err = svc.UpdateSettings(context.Background(), broken)
	assert.Error(t, err)
	// the bad document never reaches storage
	got, _ = svc.Settings(context.Background())
	assert.Equal(t, 20, got.IdleThresholdMinutes)
}

func TestAddOfficeValidates(t *testing.T) {
	store := &fakeSettingsStore{}
	svc := NewSettingsService(store)

	err := svc.AddOffice(context.Background(), &model.OfficeLocation{RadiusMeters: 100})
	assert.Error(t, err, "name is required")

	err = svc.AddOffice(context.Background(), &model.OfficeLocation{Name: "HQ", RadiusMeters: 0})
	assert.Error(t, err, "radius must be positive")

	err = svc.AddOffice(context.Background(), &model.OfficeLocation{Name: "HQ", Latitude: 10, Longitude: 106, RadiusMeters: 150})
	require.NoError(t, err)

	offices, err := svc.Offices(context.Background())
	require.NoError(t, err)
	require.Len(t, offices, 1)
	assert.Equal(t, "HQ", offices[0].Name)
}
