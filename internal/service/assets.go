package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/search"
	"github.com/Skotchmaster/research_repository/internal/storage"
)

type Indexer interface {
	IndexAsset(ctx context.Context, a *models.Asset) error
	DeleteAsset(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (*search.Result, error)
}

type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type AssetInput struct {
	Title       string           `json:"title"`
	Type        models.AssetType `json:"type"`
	Summary     string           `json:"summary"`
	Authors     string           `json:"authors"`
	Published   bool             `json:"published"`
	PublishedAt *time.Time       `json:"published_at"`
	ClientID    *uint            `json:"client_id"`
}

type Upload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AssetService struct {
	Repo   *repo.GormRepo
	Index  Indexer
	Files  Presigner
	Events EventPublisher
	Now    func() time.Time
}

func (s *AssetService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *AssetService) validate(ctx context.Context, in *AssetInput) error {
	in.Title = strings.TrimSpace(in.Title)
	v := &ValidationError{}
	requireString(v, "title", in.Title)
	if in.Type == "" {
		v.Add("type", fmt.Sprintf(msgRequired, "type"))
	} else if !in.Type.Valid() {
		v.Add("type", fmt.Sprintf(msgInvalid, "type"))
	}
	if len(in.Authors) > maxStringField {
		v.Add("authors", fmt.Sprintf(msgTooLong, "authors", maxStringField))
	}
	if in.ClientID != nil {
		if _, err := s.Repo.FindClient(ctx, *in.ClientID); err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			v.Add("client_id", fmt.Sprintf(msgInvalid, "client_id"))
		}
	}
	return v.OrNil()
}

func (s *AssetService) apply(a *models.Asset, in AssetInput) {
	a.Title, a.Type, a.Summary, a.Authors = in.Title, in.Type, in.Summary, in.Authors
	a.ClientID = in.ClientID
	a.Published = in.Published
	switch {
	case !in.Published:
		a.PublishedAt = nil
	case in.PublishedAt != nil:
		t := in.PublishedAt.UTC()
		a.PublishedAt = &t
	case a.PublishedAt == nil:
		t := s.now()
		a.PublishedAt = &t
	}
}

// syncIndex keeps only published assets searchable. Failures are logged;
// the database stays the source of truth.
func (s *AssetService) syncIndex(ctx context.Context, a *models.Asset) {
	if s.Index == nil {
		return
	}
	var err error
	if a.Published {
		err = s.Index.IndexAsset(ctx, a)
	} else {
		err = s.Index.DeleteAsset(ctx, a.ID)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("asset_index_failed", "assetID", a.ID, "error", err)
	}
}

func (s *AssetService) List(ctx context.Context, typ models.AssetType, p repo.Page) ([]models.Asset, int64, error) {
	return s.Repo.ListAssets(ctx, repo.AssetFilter{Type: typ}, p)
}

func (s *AssetService) Get(ctx context.Context, id uint) (*models.Asset, error) {
	a, err := s.Repo.FindAsset(ctx, id)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}
	return a, nil
}

func (s *AssetService) Create(ctx context.Context, actor *models.User, in AssetInput) (*models.Asset, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	a := &models.Asset{UserID: actor.ID}
	s.apply(a, in)
	if err := s.Repo.CreateAsset(ctx, a); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, a)
	publish(ctx, s.Events, TopicAssetEvents, a.ID, map[string]any{
		"type": "asset_created", "assetID": a.ID, "userID": actor.ID,
	})
	return s.Repo.FindAsset(ctx, a.ID)
}

func (s *AssetService) Update(ctx context.Context, actor *models.User, id uint, in AssetInput) (*models.Asset, error) {
	a, err := s.Repo.FindAsset(ctx, id)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}
	if err := Authorize(actor, a.UserID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	s.apply(a, in)
	a.Client = nil
	if err := s.Repo.UpdateAsset(ctx, a); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, a)
	publish(ctx, s.Events, TopicAssetEvents, a.ID, map[string]any{
		"type": "asset_updated", "assetID": a.ID, "userID": actor.ID,
	})
	return s.Repo.FindAsset(ctx, a.ID)
}

func (s *AssetService) Delete(ctx context.Context, actor *models.User, id uint) error {
	a, err := s.Repo.FindAsset(ctx, id)
	if err != nil {
		return notFound(err, "asset", id)
	}
	if err := Authorize(actor, a.UserID); err != nil {
		return err
	}
	if err := s.Repo.DeleteAsset(ctx, a); err != nil {
		return err
	}
	if s.Index != nil {
		if err := s.Index.DeleteAsset(ctx, a.ID); err != nil {
			logging.FromContext(ctx).Warn("asset_unindex_failed", "assetID", a.ID, "error", err)
		}
	}
	publish(ctx, s.Events, TopicAssetEvents, a.ID, map[string]any{
		"type": "asset_deleted", "assetID": a.ID, "userID": actor.ID,
	})
	return nil
}

// UploadURL points the asset at a fresh object key and presigns a PUT for it.
func (s *AssetService) UploadURL(ctx context.Context, actor *models.User, id uint) (*Upload, error) {
	if s.Files == nil {
		return nil, fmt.Errorf("%w: file storage not configured", ErrUnavailable)
	}
	a, err := s.Repo.FindAsset(ctx, id)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}
	if err := Authorize(actor, a.UserID); err != nil {
		return nil, err
	}
	now := s.now()
	key := storage.AssetKey(a.ID, now)
	url, err := s.Files.PresignPut(ctx, key)
	if err != nil {
		return nil, err
	}
	a.FileKey = key
	a.Client = nil
	if err := s.Repo.UpdateAsset(ctx, a); err != nil {
		return nil, err
	}
	return &Upload{URL: url, Key: key, ExpiresAt: now.Add(storage.PresignTTL)}, nil
}

// Browse lists the public repository: published assets only.
func (s *AssetService) Browse(ctx context.Context, typ models.AssetType, p repo.Page) ([]models.Asset, int64, error) {
	return s.Repo.ListAssets(ctx, repo.AssetFilter{PublishedOnly: true, Type: typ}, p)
}

func (s *AssetService) GetPublished(ctx context.Context, id uint) (*models.Asset, error) {
	a, err := s.Repo.FindAsset(ctx, id)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}
	if !a.Published {
		return nil, fmt.Errorf("%w: asset %d", ErrNotFound, id)
	}
	return a, nil
}

// DownloadURL presigns a GET for a published asset's file.
func (s *AssetService) DownloadURL(ctx context.Context, id uint) (string, error) {
	if s.Files == nil {
		return "", fmt.Errorf("%w: file storage not configured", ErrUnavailable)
	}
	a, err := s.GetPublished(ctx, id)
	if err != nil {
		return "", err
	}
	if a.FileKey == "" {
		return "", fmt.Errorf("%w: asset %d has no file", ErrNotFound, id)
	}
	return s.Files.PresignGet(ctx, a.FileKey)
}

// Search queries the index and drops hits that are no longer published in
// the database.
func (s *AssetService) Search(ctx context.Context, query string, from, size int) (*search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &FieldError{Field: "q", Message: fmt.Sprintf(msgRequired, "q")}
	}
	if s.Index == nil {
		return nil, fmt.Errorf("%w: search not configured", ErrUnavailable)
	}
	res, err := s.Index.Search(ctx, query, from, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ids := make([]uint, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	live, err := s.Repo.FindAssetsByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	ok := make(map[uint]struct{}, len(live))
	for _, a := range live {
		ok[a.ID] = struct{}{}
	}
	hits := res.Hits[:0]
	for _, h := range res.Hits {
		if _, found := ok[h.ID]; found {
			hits = append(hits, h)
		}
	}
	res.Hits = hits
	return res, nil
}
