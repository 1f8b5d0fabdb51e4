// Package ippolicy decides whether a source address may reach privileged operations.
package ippolicy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

// Policy источник решения об IP-допуске
type Policy interface {
	// Allowed сообщает, разрешен ли адрес. Пустой список правил разрешает всех.
	Allowed(ctx context.Context, ip string) (bool, error)
}

// AllowAll политика без ограничений
type AllowAll struct{}

// Allowed всегда разрешает
func (AllowAll) Allowed(context.Context, string) (bool, error) { return true, nil }

// ParseCIDR разбирает CIDR или одиночный адрес (становится /32 или /128)
func ParseCIDR(s string) (*net.IPNet, error) {
	s = strings.TrimSpace(s)

	// Check if it's a CIDR notation
	if strings.Contains(s, "/") {
		_, ipNet, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", storage.ErrInvalidCIDR, s)
		}
		return ipNet, nil
	}

	// Single IP - convert to /32 (IPv4) or /128 (IPv6) CIDR
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidCIDR, s)
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}, nil
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
}

// Normalize приводит правило к каноничной форме CIDR
func Normalize(s string) (string, error) {
	ipNet, err := ParseCIDR(s)
	if err != nil {
		return "", err
	}
	return ipNet.String(), nil
}

func contains(nets []*net.IPNet, ipStr string) bool {
	// If no IPs are specified, allow all
	if len(nets) == 0 {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Static неизменяемый список, заданный конфигурацией
type Static struct {
	nets []*net.IPNet
}

// NewStatic разбирает список. Ошибка в любом правиле - ошибка конфигурации.
func NewStatic(cidrs []string) (*Static, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		if strings.TrimSpace(c) == "" {
			continue
		}
		n, err := ParseCIDR(c)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return &Static{nets: nets}, nil
}

// Allowed проверяет адрес по списку
func (p *Static) Allowed(_ context.Context, ip string) (bool, error) {
	return contains(p.nets, ip), nil
}

// Managed список, хранимый в storage.IPRuleStorage и изменяемый во время работы.
// Разобранные сети кешируются в памяти и обновляются при каждом изменении.
type Managed struct {
	store  storage.IPRuleStorage
	logger *slog.Logger
	now    func() time.Time
	nets   []*net.IPNet
	mu     sync.RWMutex
}

// NewManaged загружает правила из хранилища. seed добавляется в хранилище, если правила еще нет.
func NewManaged(ctx context.Context, store storage.IPRuleStorage, seed []string, logger *slog.Logger) (*Managed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Managed{store: store, logger: logger, now: time.Now}

	existing, err := store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ip rules: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.CIDR] = true
	}

	for _, s := range seed {
		if strings.TrimSpace(s) == "" {
			continue
		}
		cidr, err := Normalize(s)
		if err != nil {
			return nil, err
		}
		if known[cidr] {
			continue
		}
		if err := store.PutRule(ctx, &models.IPRule{CIDR: cidr, Note: "config", CreatedAt: m.now().UTC()}); err != nil {
			return nil, fmt.Errorf("failed to seed ip rule: %w", err)
		}
		known[cidr] = true
	}

	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Allowed проверяет адрес по текущему списку
func (m *Managed) Allowed(_ context.Context, ip string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return contains(m.nets, ip), nil
}

// Reload перечитывает правила из хранилища
func (m *Managed) Reload(ctx context.Context) error {
	rules, err := m.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ip rules: %w", err)
	}

	nets := make([]*net.IPNet, 0, len(rules))
	for _, r := range rules {
		n, err := ParseCIDR(r.CIDR)
		if err != nil {
			// битое правило пропускаем, остальные продолжают действовать
			m.logger.WarnContext(ctx, "skipping invalid ip rule", slog.String("cidr", r.CIDR))
			continue
		}
		nets = append(nets, n)
	}

	m.mu.Lock()
	m.nets = nets
	m.mu.Unlock()

	return nil
}

// Add добавляет правило и возвращает его каноничную форму
func (m *Managed) Add(ctx context.Context, cidr, note string) (*models.IPRule, error) {
	normalized, err := Normalize(cidr)
	if err != nil {
		return nil, err
	}

	rule := &models.IPRule{CIDR: normalized, Note: note, CreatedAt: m.now().UTC()}
	if err := m.store.PutRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, m.Reload(ctx)
}

// Remove удаляет правило
func (m *Managed) Remove(ctx context.Context, cidr string) error {
	normalized, err := Normalize(cidr)
	if err != nil {
		return err
	}

	if err := m.store.DeleteRule(ctx, normalized); err != nil {
		return err
	}

	return m.Reload(ctx)
}

// List возвращает правила из хранилища
func (m *Managed) List(ctx context.Context) ([]*models.IPRule, error) {
	return m.store.ListRules(ctx)
}
