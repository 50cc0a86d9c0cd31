package group

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("user is already a member of this group")
	ErrNotGroupAdmin       = errors.New("only a group admin can perform this action")
)

// Service handles group business logic. Membership mutations are restricted
// to group admins (the creator is always an admin).
type Service struct {
	repo *Repository
	log  *logrus.Logger
}

// NewService creates a new group service.
func NewService(repo *Repository, log *logrus.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create creates a group with the creator as its first admin.
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Group, error) {
	g, err := s.repo.Create(ctx, creatorID, req)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"group_id": g.ID, "creator_id": creatorID}).Info("group created")
	return g, nil
}

// GetByID retrieves a group by its ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// GetByIDWithMembers retrieves a group together with its members.
func (s *Service) GetByIDWithMembers(ctx context.Context, id int64) (*Group, []*Member, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.GetMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return g, members, nil
}

// ListByUserID retrieves a page of the groups a user belongs to.
func (s *Service) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return s.repo.ListByUserID(ctx, userID, perPage, (page-1)*perPage)
}

// Update modifies a group; admin only.
func (s *Service) Update(ctx context.Context, actorID, id int64, req *UpdateGroupRequest) (*Group, error) {
	if err := s.requireAdmin(ctx, id, actorID); err != nil {
		return nil, err
	}

	g, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// Delete removes a group and its memberships; admin only.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.requireAdmin(ctx, id, actorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"group_id": id, "actor_id": actorID}).Info("group deleted")
	return nil
}

// AddMember adds a user to a group; admin only.
func (s *Service) AddMember(ctx context.Context, actorID, groupID int64, req *AddMemberRequest) (*Member, error) {
	if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMember(ctx, groupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberAlreadyExists
	}

	return s.repo.AddMember(ctx, groupID, req)
}

// GetMembers retrieves all members of a group.
func (s *Service) GetMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.GetMembers(ctx, groupID)
}

// UpdateMemberRole changes a member's role; admin only.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID, groupID, userID int64, role MemberRole) (*Member, error) {
	if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	m, err := s.repo.UpdateMemberRole(ctx, groupID, userID, role)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

// RemoveMember removes a user from a group. Admins can remove anyone;
// members can remove themselves (leave).
func (s *Service) RemoveMember(ctx context.Context, actorID, groupID, userID int64) error {
	if actorID != userID {
		if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
			return err
		}
	}
	return s.repo.RemoveMember(ctx, groupID, userID)
}

// requireAdmin verifies the actor is the group's creator or an admin member.
func (s *Service) requireAdmin(ctx context.Context, groupID, actorID int64) error {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGroupNotFound
	}
	if g.CreatedBy == actorID {
		return nil
	}

	m, err := s.repo.GetMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if m == nil || m.Role != MemberRoleAdmin {
		return ErrNotGroupAdmin
	}
	return nil
}
