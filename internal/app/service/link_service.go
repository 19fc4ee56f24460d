package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
)

// ErrHashExhausted is returned when hash generation keeps colliding; with the
// default length this effectively never happens.
var ErrHashExhausted = errors.New("could not generate a unique hash")

const hashCreateAttempts = 5

// LinkService defines behaviour-level operations on affiliate links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.AffiliateLink, error)
	GetLink(ctx context.Context, hash string) (*model.AffiliateLink, error)
	ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error)
	UpdateLink(ctx context.Context, hash string, input UpdateLinkInput) (*model.AffiliateLink, error)
}

type linkService struct {
	repo       repository.LinkRepository
	hashFilter *HashFilter
	hashLength int
}

// NewLinkService returns a service implementation backed by the given
// repository. The hash filter may be nil (tests).
func NewLinkService(repo repository.LinkRepository, hashFilter *HashFilter, hashLength int) LinkService {
	if hashLength <= 0 {
		hashLength = DefaultHashLength
	}
	return &linkService{repo: repo, hashFilter: hashFilter, hashLength: hashLength}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	OwnerID        string
	DestinationURL string
	Tag            string
}

// UpdateLinkInput captures fields that can be changed on an existing link.
// The hash and the counters are immutable from this path.
type UpdateLinkInput struct {
	DestinationURL *string
	Tag            *string
	IsActive       *bool
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.AffiliateLink, error) {
	for attempt := 0; attempt < hashCreateAttempts; attempt++ {
		hash, err := NewHash(s.hashLength)
		if err != nil {
			return nil, err
		}

		link := &model.AffiliateLink{
			Hash:           hash,
			OwnerID:        input.OwnerID,
			DestinationURL: input.DestinationURL,
			Tag:            input.Tag,
			IsActive:       true,
		}

		err = s.repo.Create(ctx, link)
		if err == nil {
			if s.hashFilter != nil {
				s.hashFilter.Add(hash)
			}
			return link, nil
		}
		if errors.Is(err, repository.ErrHashTaken) {
			continue
		}
		return nil, fmt.Errorf("create link: %w", err)
	}
	return nil, ErrHashExhausted
}

func (s *linkService) GetLink(ctx context.Context, hash string) (*model.AffiliateLink, error) {
	link, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error) {
	links, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) UpdateLink(ctx context.Context, hash string, input UpdateLinkInput) (*model.AffiliateLink, error) {
	link, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}

	if input.DestinationURL != nil {
		link.DestinationURL = *input.DestinationURL
	}
	if input.Tag != nil {
		link.Tag = *input.Tag
	}
	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	return link, nil
}
