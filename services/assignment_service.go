package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/models"
	"github.com/lachong-dev/agiletech_backend/repositories"
)

// AssignmentService picks staff for new work. Sales are assigned when a
// service request converts to a project; developers join when the deposit
// clears and delivery starts.
type AssignmentService struct {
	userRepo *repositories.UserRepository
	projects *mongo.Collection
}

func NewAssignmentService(db *mongo.Database) *AssignmentService {
	return &AssignmentService{
		userRepo: repositories.NewUserRepository(db),
		projects: db.Collection("projects"),
	}
}

// activeStatuses counts against a staff member's load.
var activeStatuses = []models.ProjectStatus{
	models.ProjectNegotiation,
	models.ProjectDeposit,
	models.ProjectPending,
	models.ProjectInProgress,
	models.ProjectRevisionRequired,
	models.ProjectPendingAcceptance,
}

// PickSales returns the active sales user managing the fewest open
// projects. Ties go to the first user returned, which keeps assignment
// deterministic for the same data.
func (s *AssignmentService) PickSales(ctx context.Context) (*models.User, error) {
	return s.pickLeastBusy(ctx, models.RoleSales, "managerId")
}

// PickDeveloper returns the active developer on the fewest open projects.
func (s *AssignmentService) PickDeveloper(ctx context.Context) (*models.User, error) {
	return s.pickLeastBusy(ctx, models.RoleDev, "teamMemberIds")
}

func (s *AssignmentService) pickLeastBusy(ctx context.Context, role models.Role, field string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	candidates, err := s.userRepo.ActiveStaffByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Printf("No active %s users available for assignment", role)
		return nil, nil
	}

	var best *models.User
	bestLoad := int64(-1)
	for i := range candidates {
		load, err := s.openProjectCount(ctx, field, candidates[i].ID)
		if err != nil {
			return nil, err
		}
		if bestLoad < 0 || load < bestLoad {
			best = &candidates[i]
			bestLoad = load
		}
	}

	log.Printf("Assigned %s %s (%d open projects)", role, best.Email, bestLoad)
	return best, nil
}

func (s *AssignmentService) openProjectCount(ctx context.Context, field string, userID primitive.ObjectID) (int64, error) {
	return s.projects.CountDocuments(ctx, bson.M{
		field:    userID,
		"status": bson.M{"$in": activeStatuses},
	})
}
