package storage

import (
	"context"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// IPRuleStorage defines interface for IP allow-list persistence
type IPRuleStorage interface {
	// PutRule stores or replaces a rule keyed by its normalized CIDR
	PutRule(ctx context.Context, rule *models.IPRule) error

	// DeleteRule removes a rule
	// Returns ErrRuleNotFound if rule doesn't exist
	DeleteRule(ctx context.Context, cidr string) error

	// ListRules returns all rules ordered by CIDR
	ListRules(ctx context.Context) ([]*models.IPRule, error)
}
