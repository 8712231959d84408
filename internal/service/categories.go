package service

import (
	"context"

	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/session"
)

// Gateway is the analysis API as used by the services.
type Gateway interface {
	session.Gateway
	dashboard.Gateway
	Categories(ctx context.Context, root models.CategoryID) ([]models.CategoryNode, error)
}

// CategoryService reads the category tree.
type CategoryService struct {
	gw Gateway
}

func NewCategoryService(gw Gateway) *CategoryService {
	return &CategoryService{gw: gw}
}

// Tree returns the whole category tree.
func (s *CategoryService) Tree(ctx context.Context) ([]models.CategoryNode, error) {
	return s.gw.Categories(ctx, models.NoCategory)
}

// Leaves returns only the leaf categories with their "A > B > C" paths.
func (s *CategoryService) Leaves(ctx context.Context) ([]models.LeafCategory, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return models.FlattenLeaves(tree), nil
}
