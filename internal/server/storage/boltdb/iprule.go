package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

var _ storage.IPRuleStorage = (*Storage)(nil)

// PutRule stores or replaces a rule keyed by its CIDR
func (s *Storage) PutRule(ctx context.Context, rule *models.IPRule) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIPRules)
		if bucket == nil {
			return fmt.Errorf("ip rules bucket not found")
		}

		// Сериализуем данные в JSON
		data, err := json.Marshal(rule)
		if err != nil {
			return fmt.Errorf("failed to marshal ip rule: %w", err)
		}

		if err := bucket.Put([]byte(rule.CIDR), data); err != nil {
			return fmt.Errorf("failed to save ip rule: %w", err)
		}

		return nil
	})
}

// DeleteRule removes a rule
func (s *Storage) DeleteRule(ctx context.Context, cidr string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIPRules)
		if bucket == nil {
			return fmt.Errorf("ip rules bucket not found")
		}

		// Проверяем существование правила
		if bucket.Get([]byte(cidr)) == nil {
			return storage.ErrRuleNotFound
		}

		if err := bucket.Delete([]byte(cidr)); err != nil {
			return fmt.Errorf("failed to delete ip rule: %w", err)
		}

		return nil
	})
}

// ListRules returns all rules ordered by CIDR
func (s *Storage) ListRules(ctx context.Context) ([]*models.IPRule, error) {
	rules := make([]*models.IPRule, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIPRules)
		if bucket == nil {
			return fmt.Errorf("ip rules bucket not found")
		}

		// bbolt хранит ключи отсортированными
		return bucket.ForEach(func(k, v []byte) error {
			rule := &models.IPRule{}
			if err := json.Unmarshal(v, rule); err != nil {
				return fmt.Errorf("failed to unmarshal ip rule %s: %w", k, err)
			}
			rules = append(rules, rule)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return rules, nil
}
