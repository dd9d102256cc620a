package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

type CategoryInput struct {
	Title       *string
	Description *string
}

type CategoryService struct {
	store  port.Store
	logger zerolog.Logger
}

func NewCategoryService(store port.Store, logger zerolog.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		logger: logger.With().Str("component", "category_service").Logger(),
	}
}

func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}

	c := &domain.Category{Title: strings.TrimSpace(*in.Title)}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("category_id", c.ID).Str("title", c.Title).Msg("category created")
	return c, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	return c, nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidArgument)
		}
		c.Title = title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory detaches the category from its shop items; the items stay.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}
