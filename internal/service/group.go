package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"canopy/internal/config"
	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
)

type groupService struct {
	groupRepo repositories.GroupRepository
	logger    *slog.Logger
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo repositories.GroupRepository, logger *slog.Logger) services.GroupService {
	return &groupService{
		groupRepo: groupRepo,
		logger:    logger,
	}
}

// CreateGroup creates a new group
func (s *groupService) CreateGroup(ctx context.Context, req *services.CreateGroupRequest) (*models.Group, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	group := &models.Group{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("group created", "id", group.ID, "name", group.Name)
	return group, nil
}

// AddMember adds a user to a group (idempotent)
func (s *groupService) AddMember(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return fmt.Errorf("group_id and user_id are required: %w", domain.ErrValidation)
	}

	if err := s.groupRepo.AddMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.logger.Info("group member added", "group_id", groupID, "user_id", userID)
	return nil
}

// RemoveMember removes a user from a group
func (s *groupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return fmt.Errorf("group_id and user_id are required: %w", domain.ErrValidation)
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.logger.Info("group member removed", "group_id", groupID, "user_id", userID)
	return nil
}
