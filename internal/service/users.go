package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/research_repository/internal/hash"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/repo"
)

// UserInput carries optional fields as pointers; nil leaves the stored
// value alone on update.
type UserInput struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Status   models.UserStatus `json:"status"`
	Password *string           `json:"password"`
	RoleIDs  *[]uint           `json:"role_ids"`
}

type UserService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

func (s *UserService) validate(ctx context.Context, in *UserInput, current *models.User) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	v := &ValidationError{}
	requireString(v, "name", in.Name)
	requireString(v, "email", in.Email)
	if _, bad := v.Fields["email"]; !bad {
		if !validEmail(in.Email) {
			v.Add("email", fmt.Sprintf(msgEmail, "email"))
		} else if current == nil || current.Email != in.Email {
			existing, err := s.Repo.FindUserByEmail(ctx, in.Email)
			switch {
			case err == nil && (current == nil || existing.ID != current.ID):
				v.Add("email", fmt.Sprintf(msgTaken, "email"))
			case err != nil && !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}
	}

	if in.Status == "" {
		in.Status = models.UserActive
		if current != nil {
			in.Status = current.Status
		}
	}
	if in.Status != models.UserActive && in.Status != models.UserInactive {
		v.Add("status", fmt.Sprintf(msgInvalid, "status"))
	}

	if in.Password != nil && *in.Password != "" && len(*in.Password) < hash.MinPasswordLength {
		v.Add("password", fmt.Sprintf("The password field must be at least %d characters.", hash.MinPasswordLength))
	}

	if in.RoleIDs != nil {
		ids := dedupe(*in.RoleIDs)
		in.RoleIDs = &ids
		n, err := s.Repo.CountRoles(ctx, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			v.Add("role_ids", fmt.Sprintf(msgInvalid, "role_ids"))
		}
	}
	return v.OrNil()
}

func applyPassword(u *models.User, pw *string) error {
	if pw == nil {
		return nil
	}
	if *pw == "" {
		u.PasswordHash = nil
		return nil
	}
	h, err := hash.HashPassword(*pw)
	if err != nil {
		return err
	}
	u.PasswordHash = &h
	return nil
}

func (s *UserService) List(ctx context.Context, p repo.Page) ([]models.User, int64, error) {
	return s.Repo.ListUsers(ctx, p)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.FindUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := s.validate(ctx, &in, nil); err != nil {
		return nil, err
	}
	u := &models.User{Name: in.Name, Email: in.Email, Status: in.Status}
	if err := applyPassword(u, in.Password); err != nil {
		return nil, err
	}
	var roleIDs []uint
	if in.RoleIDs != nil {
		roleIDs = *in.RoleIDs
	}
	if err := s.Repo.CreateUser(ctx, u, roleIDs); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &FieldError{Field: "email", Message: fmt.Sprintf(msgTaken, "email")}
		}
		return nil, err
	}
	publish(ctx, s.Events, TopicUserEvents, u.ID, map[string]any{
		"type": "user_created", "userID": u.ID,
	})
	return s.Repo.FindUser(ctx, u.ID)
}

// Update rewrites the profile; deactivating a user also ends their sessions.
func (s *UserService) Update(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	u, err := s.Repo.FindUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	if err := s.validate(ctx, &in, u); err != nil {
		return nil, err
	}
	wasActive := u.IsActive()
	u.Name, u.Email, u.Status = in.Name, in.Email, in.Status
	if err := applyPassword(u, in.Password); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateUser(ctx, u, in.RoleIDs); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &FieldError{Field: "email", Message: fmt.Sprintf(msgTaken, "email")}
		}
		return nil, err
	}
	if wasActive && !u.IsActive() {
		if err := s.Repo.RevokeUserSessions(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	publish(ctx, s.Events, TopicUserEvents, u.ID, map[string]any{
		"type": "user_updated", "userID": u.ID, "status": u.Status,
	})
	return s.Repo.FindUser(ctx, u.ID)
}

func (s *UserService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if actor != nil && actor.ID == id {
		return fmt.Errorf("%w: cannot delete own account", ErrForbidden)
	}
	u, err := s.Repo.FindUser(ctx, id)
	if err != nil {
		return notFound(err, "user", id)
	}
	if err := s.Repo.DeleteUser(ctx, u); err != nil {
		return err
	}
	publish(ctx, s.Events, TopicUserEvents, u.ID, map[string]any{
		"type": "user_deleted", "userID": u.ID,
	})
	return nil
}
