package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"attendance-engine/internal/model"
)

// Single settings document id. Settings are read as a snapshot at the start
// of each tracking session or report, never mid-computation.
const settingsDocID = "attendance"

type SettingsStore struct {
	settings *mongo.Collection
	offices  *mongo.Collection
}

func NewSettingsStore(ctx context.Context, db *MongoDB) (*SettingsStore, error) {
	offices := db.Collection("office_locations")
	if _, err := offices.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("create office indexes: %w", err)
	}
	return &SettingsStore{
		settings: db.Collection("settings"),
		offices:  offices,
	}, nil
}

type settingsDoc struct {
	ID       string                   `bson:"_id"`
	Settings model.AttendanceSettings `bson:"settings"`
}

// GetSettings returns the settings snapshot, seeding defaults on first use.
// The snapshot is validated before it is handed out; a broken document is a
// configuration error, not something to silently default.
func (s *SettingsStore) GetSettings(ctx context.Context) (model.AttendanceSettings, error) {
	var doc settingsDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		defaults := model.DefaultSettings()
		if err := s.PutSettings(ctx, defaults); err != nil {
			return model.AttendanceSettings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return model.AttendanceSettings{}, fmt.Errorf("find settings: %w", err)
	}
	if err := doc.Settings.Validate(); err != nil {
		return model.AttendanceSettings{}, fmt.Errorf("stored settings invalid: %w", err)
	}
	return doc.Settings, nil
}

// PutSettings validates and replaces the settings document.
func (s *SettingsStore) PutSettings(ctx context.Context, settings model.AttendanceSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.settings.ReplaceOne(ctx,
		bson.M{"_id": settingsDocID},
		settingsDoc{ID: settingsDocID, Settings: settings},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// GetOfficeLocations returns the geofence table snapshot.
func (s *SettingsStore) GetOfficeLocations(ctx context.Context) ([]model.OfficeLocation, error) {
	cursor, err := s.offices.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find office locations: %w", err)
	}
	var results []model.OfficeLocation
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode office locations: %w", err)
	}
	return results, nil
}

// CreateOfficeLocation registers a new geofence.
func (s *SettingsStore) CreateOfficeLocation(ctx context.Context, loc *model.OfficeLocation) error {
	if loc.RadiusMeters <= 0 {
		return fmt.Errorf("office %q: radius must be positive, got %v", loc.Name, loc.RadiusMeters)
	}
	res, err := s.offices.InsertOne(ctx, loc)
	if err != nil {
		return fmt.Errorf("create office location: %w", err)
	}
	loc.ID = res.InsertedID.(bson.ObjectID)
	return nil
}
