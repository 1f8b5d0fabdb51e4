package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/apperror"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/audit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ippolicy"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

var superAdminRoles = []models.Role{models.RoleSuperAdmin}

type auditQuery struct {
	limitErr error
	filter   models.AuditFilter
}

type ruleInput struct {
	decodeErr error
	req       api.IPRuleRequest
}

// AdminHandler обрабатывает запросы SUPER_ADMIN: журнал аудита и список разрешенных адресов
type AdminHandler struct {
	logger     *slog.Logger
	listAudit  audit.Handler[auditQuery, []*models.AuditEntry]
	listRules  audit.Handler[struct{}, []*models.IPRule]
	addRule    audit.Handler[ruleInput, *models.IPRule]
	removeRule audit.Handler[string, struct{}]
}

// NewAdminHandler создает handler
func NewAdminHandler(logger *slog.Logger, journal storage.AuditStorage, rules *ippolicy.Managed, interceptor *audit.Interceptor) *AdminHandler {
	h := &AdminHandler{logger: logger}

	h.listAudit = audit.Wrap(interceptor, audit.Spec[auditQuery, []*models.AuditEntry]{
		Action: models.ActionAuditViewed,
		Roles:  superAdminRoles,
		Preview: func(q auditQuery) string {
			return fmt.Sprintf("admin %s action %s", q.filter.AdminID, q.filter.Action)
		},
		Summary: func(res []*models.AuditEntry) string { return fmt.Sprintf("entries: %d", len(res)) },
	}, func(ctx context.Context, q auditQuery) ([]*models.AuditEntry, error) {
		if q.limitErr != nil {
			return nil, q.limitErr
		}
		return journal.ListAudit(ctx, q.filter)
	})

	h.listRules = audit.Wrap(interceptor, audit.Spec[struct{}, []*models.IPRule]{
		Action:  models.ActionIPRulesListed,
		Roles:   superAdminRoles,
		Summary: func(res []*models.IPRule) string { return fmt.Sprintf("rules: %d", len(res)) },
	}, func(ctx context.Context, _ struct{}) ([]*models.IPRule, error) {
		return rules.List(ctx)
	})

	h.addRule = audit.Wrap(interceptor, audit.Spec[ruleInput, *models.IPRule]{
		Action:     models.ActionIPRuleAdded,
		Roles:      superAdminRoles,
		ResourceID: func(in ruleInput, _ *models.IPRule) string { return in.req.CIDR },
	}, func(ctx context.Context, in ruleInput) (*models.IPRule, error) {
		if in.decodeErr != nil {
			return nil, in.decodeErr
		}
		rule, err := rules.Add(ctx, in.req.CIDR, in.req.Note)
		if errors.Is(err, storage.ErrInvalidCIDR) {
			return nil, apperror.Validation("INVALID_CIDR", err.Error(), err)
		}
		return rule, err
	})

	h.removeRule = audit.Wrap(interceptor, audit.Spec[string, struct{}]{
		Action:     models.ActionIPRuleRemoved,
		Roles:      superAdminRoles,
		ResourceID: func(cidr string, _ struct{}) string { return cidr },
	}, func(ctx context.Context, cidr string) (struct{}, error) {
		err := rules.Remove(ctx, cidr)
		switch {
		case errors.Is(err, storage.ErrInvalidCIDR):
			return struct{}{}, apperror.Validation("INVALID_CIDR", err.Error(), err)
		case errors.Is(err, storage.ErrRuleNotFound):
			return struct{}{}, apperror.NotFound("ip rule not found", err)
		}
		return struct{}{}, err
	})

	return h
}

// ListAudit обрабатывает GET /api/v1/admin/audit?admin_id=&action=&limit=
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := auditQuery{
		filter: models.AuditFilter{
			AdminID: r.URL.Query().Get("admin_id"),
			Action:  models.AuditAction(r.URL.Query().Get("action")),
		},
	}
	q.filter.Limit, q.limitErr = parseLimit(r)

	entries, err := h.listAudit(r.Context(), audit.CallFromRequest(r), q)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	resp := api.AuditListResponse{Entries: make([]api.AuditEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toAPIAuditEntry(e))
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// ListRules обрабатывает GET /api/v1/admin/ip-rules
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.listRules(r.Context(), audit.CallFromRequest(r), struct{}{})
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	resp := api.IPRuleListResponse{Rules: make([]api.IPRule, 0, len(list))}
	for _, rule := range list {
		resp.Rules = append(resp.Rules, toAPIIPRule(rule))
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// AddRule обрабатывает POST /api/v1/admin/ip-rules
func (h *AdminHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var in ruleInput
	in.decodeErr = decodeJSON(r, &in.req)

	rule, err := h.addRule(r.Context(), audit.CallFromRequest(r), in)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	sendJSON(h.logger, w, toAPIIPRule(rule), http.StatusCreated)
}

// RemoveRule обрабатывает DELETE /api/v1/admin/ip-rules?cidr=
func (h *AdminHandler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	cidr := r.URL.Query().Get("cidr")

	if _, err := h.removeRule(r.Context(), audit.CallFromRequest(r), cidr); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
