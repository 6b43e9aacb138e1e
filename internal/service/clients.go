package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/repo"
)

type ClientInput struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

type ClientService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

func validateClient(in *ClientInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	v := &ValidationError{}
	requireString(v, "name", in.Name)
	if len(in.Organization) > maxStringField {
		v.Add("organization", fmt.Sprintf(msgTooLong, "organization", maxStringField))
	}
	if in.Email != "" && !validEmail(in.Email) {
		v.Add("email", fmt.Sprintf(msgEmail, "email"))
	}
	if len(in.Phone) > 32 {
		v.Add("phone", fmt.Sprintf(msgTooLong, "phone", 32))
	}
	return v.OrNil()
}

func (s *ClientService) List(ctx context.Context, p repo.Page) ([]models.Client, int64, error) {
	return s.Repo.ListClients(ctx, p)
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	c, err := s.Repo.FindClient(ctx, id)
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	return c, nil
}

func (s *ClientService) Create(ctx context.Context, actor *models.User, in ClientInput) (*models.Client, error) {
	if err := validateClient(&in); err != nil {
		return nil, err
	}
	c := &models.Client{
		Name: in.Name, Organization: in.Organization, Email: in.Email, Phone: in.Phone,
		UserID: actor.ID,
	}
	if err := s.Repo.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	publish(ctx, s.Events, TopicClientEvents, c.ID, map[string]any{
		"type": "client_created", "clientID": c.ID, "userID": actor.ID,
	})
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, actor *models.User, id uint, in ClientInput) (*models.Client, error) {
	c, err := s.Repo.FindClient(ctx, id)
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	if err := Authorize(actor, c.UserID); err != nil {
		return nil, err
	}
	if err := validateClient(&in); err != nil {
		return nil, err
	}
	c.Name, c.Organization, c.Email, c.Phone = in.Name, in.Organization, in.Email, in.Phone
	if err := s.Repo.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	publish(ctx, s.Events, TopicClientEvents, c.ID, map[string]any{
		"type": "client_updated", "clientID": c.ID, "userID": actor.ID,
	})
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, actor *models.User, id uint) error {
	c, err := s.Repo.FindClient(ctx, id)
	if err != nil {
		return notFound(err, "client", id)
	}
	if err := Authorize(actor, c.UserID); err != nil {
		return err
	}
	if err := s.Repo.DeleteClient(ctx, c); err != nil {
		return err
	}
	publish(ctx, s.Events, TopicClientEvents, c.ID, map[string]any{
		"type": "client_deleted", "clientID": c.ID, "userID": actor.ID,
	})
	return nil
}
