package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"attendance-engine/internal/model"
)

type AttendanceStore struct {
	records *mongo.Collection
}

func NewAttendanceStore(ctx context.Context, db *MongoDB) (*AttendanceStore, error) {
	records := db.Collection("attendance_records")

	// Unique (employee_id, date) index: one record per employee per day is
	// enforced at the storage layer too.
	if _, err := records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employee_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "department", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "approval.status", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create attendance indexes: %w", err)
	}

	return &AttendanceStore{records: records}, nil
}

// GetDayRecord returns one employee's record for a date (YYYY-MM-DD), or nil
// when not found.
func (s *AttendanceStore) GetDayRecord(ctx context.Context, employeeID, date string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.records.FindOne(ctx, bson.M{
		"employee_id": employeeID,
		"date":        date,
	}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// GetByID retrieves a record by its ObjectID, or nil when not found.
func (s *AttendanceStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.records.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// Create inserts a new attendance record and sets the ID on the struct.
func (s *AttendanceStore) Create(ctx context.Context, record *model.AttendanceRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	res, err := s.records.InsertOne(ctx, record)
	if err != nil {
		return err
	}
	record.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// Update replaces an existing attendance record. Mutations always arrive as
// the full record, never as partial patches.
func (s *AttendanceStore) Update(ctx context.Context, record *model.AttendanceRecord) error {
	record.UpdatedAt = time.Now()
	_, err := s.records.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	return err
}

// GetByDateRange returns records within a date range, optionally filtered by
// employee.
func (s *AttendanceStore) GetByDateRange(ctx context.Context, from, to, employeeID string) ([]*model.AttendanceRecord, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	if employeeID != "" {
		filter["employee_id"] = employeeID
	}
	cursor, err := s.records.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	var results []*model.AttendanceRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	return results, nil
}

// GetPending returns records awaiting manager review.
func (s *AttendanceStore) GetPending(ctx context.Context, managerID string) ([]*model.AttendanceRecord, error) {
	filter := bson.M{"approval.status": model.ApprovalPending}
	if managerID != "" {
		filter["manager_id"] = managerID
	}
	cursor, err := s.records.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find pending attendance: %w", err)
	}
	var results []*model.AttendanceRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode pending attendance: %w", err)
	}
	return results, nil
}
