package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DepartmentService manages the department registry referenced by tasks,
// users and admins.
type DepartmentService struct {
	departmentsCollection *mongo.Collection
}

func NewDepartmentService(departments *mongo.Collection) *DepartmentService {
	return &DepartmentService{departmentsCollection: departments}
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, name, description string) (*models.Department, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.ErrMissingFields
	}

	var existing models.Department
	if err := s.departmentsCollection.FindOne(ctx, bson.M{"name": name}).Decode(&existing); err == nil {
		return nil, models.ErrDuplicateDepartment
	}

	department := &models.Department{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   time.Now(),
	}
	if _, err := s.departmentsCollection.InsertOne(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %v", err)
	}
	return department, nil
}

func (s *DepartmentService) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	cursor, err := s.departmentsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve departments: %v", err)
	}
	defer cursor.Close(ctx)

	var departments []*models.Department
	for cursor.Next(ctx) {
		var department models.Department
		if err := cursor.Decode(&department); err != nil {
			return nil, fmt.Errorf("failed to decode department: %v", err)
		}
		departments = append(departments, &department)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}
	return departments, nil
}

func (s *DepartmentService) GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	var department models.Department
	if err := s.departmentsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&department); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("failed to look up department: %v", err)
	}
	return &department, nil
}
