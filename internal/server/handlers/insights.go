package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/audit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/insights"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// adminRoles роли, которым доступен ассистент
var adminRoles = []models.Role{models.RoleAdmin, models.RoleSuperAdmin}

// chatInput вход операции отправки сообщения. decodeErr сохраняется, чтобы
// неразбираемый запрос тоже прошел через допуск и попал в журнал.
type chatInput struct {
	decodeErr error
	req       api.ChatRequest
}

// conversationInput вход операций над одним диалогом
type conversationInput struct {
	ID string
}

// listInput вход операции списка диалогов
type listInput struct {
	limitErr error
	limit    int
}

// InsightsHandler обрабатывает запросы к ассистенту бизнес-аналитики
type InsightsHandler struct {
	logger *slog.Logger
	chat   audit.Handler[chatInput, *insights.ChatResult]
	get    audit.Handler[conversationInput, *insights.History]
	list   audit.Handler[listInput, []*models.Conversation]
	delete audit.Handler[conversationInput, struct{}]
}

// NewInsightsHandler создает handler. Каждая операция оборачивается перехватчиком аудита.
func NewInsightsHandler(logger *slog.Logger, svc *insights.Service, interceptor *audit.Interceptor) *InsightsHandler {
	h := &InsightsHandler{logger: logger}

	h.chat = audit.Wrap(interceptor, audit.Spec[chatInput, *insights.ChatResult]{
		Action:  models.ActionMessageSent,
		Roles:   adminRoles,
		Preview: func(in chatInput) string { return in.req.Message },
		ResourceID: func(in chatInput, res *insights.ChatResult) string {
			if res != nil {
				return res.Conversation.ID
			}
			return in.req.ConversationID
		},
		Summary: func(res *insights.ChatResult) string {
			return fmt.Sprintf("response length: %d", len(res.Reply.Content))
		},
	}, func(ctx context.Context, in chatInput) (*insights.ChatResult, error) {
		if in.decodeErr != nil {
			return nil, in.decodeErr
		}
		return svc.SendMessage(ctx, adminID(ctx), in.req.ConversationID, in.req.Message)
	})

	h.get = audit.Wrap(interceptor, audit.Spec[conversationInput, *insights.History]{
		Action:     models.ActionConversationViewed,
		Roles:      adminRoles,
		ResourceID: func(in conversationInput, _ *insights.History) string { return in.ID },
		Summary: func(res *insights.History) string {
			return fmt.Sprintf("messages: %d", len(res.Messages))
		},
	}, func(ctx context.Context, in conversationInput) (*insights.History, error) {
		return svc.GetConversation(ctx, adminID(ctx), in.ID)
	})

	h.list = audit.Wrap(interceptor, audit.Spec[listInput, []*models.Conversation]{
		Action: models.ActionConversationsListed,
		Roles:  adminRoles,
		Summary: func(res []*models.Conversation) string {
			return fmt.Sprintf("conversations: %d", len(res))
		},
	}, func(ctx context.Context, in listInput) ([]*models.Conversation, error) {
		if in.limitErr != nil {
			return nil, in.limitErr
		}
		return svc.ListConversations(ctx, adminID(ctx), in.limit)
	})

	h.delete = audit.Wrap(interceptor, audit.Spec[conversationInput, struct{}]{
		Action:     models.ActionConversationDeleted,
		Roles:      adminRoles,
		ResourceID: func(in conversationInput, _ struct{}) string { return in.ID },
	}, func(ctx context.Context, in conversationInput) (struct{}, error) {
		return struct{}{}, svc.DeleteConversation(ctx, adminID(ctx), in.ID)
	})

	return h
}

// Chat обрабатывает POST /api/v1/admin/insights/chat
func (h *InsightsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var in chatInput
	in.decodeErr = decodeJSON(r, &in.req)

	res, err := h.chat(r.Context(), audit.CallFromRequest(r), in)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	sendJSON(h.logger, w, api.ChatResponse{
		Conversation: toAPIConversation(res.Conversation),
		Reply:        toAPIMessage(res.Reply),
	}, http.StatusOK)
}

// ListConversations обрабатывает GET /api/v1/admin/insights/conversations
func (h *InsightsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	var in listInput
	in.limit, in.limitErr = parseLimit(r)

	convs, err := h.list(r.Context(), audit.CallFromRequest(r), in)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	resp := api.ConversationListResponse{Conversations: make([]api.Conversation, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toAPIConversation(c))
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// GetConversation обрабатывает GET /api/v1/admin/insights/conversations/{id}
func (h *InsightsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	in := conversationInput{ID: chi.URLParam(r, "id")}

	history, err := h.get(r.Context(), audit.CallFromRequest(r), in)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	resp := api.ConversationHistoryResponse{
		Conversation: toAPIConversation(history.Conversation),
		Messages:     make([]api.Message, 0, len(history.Messages)),
	}
	for _, m := range history.Messages {
		resp.Messages = append(resp.Messages, toAPIMessage(m))
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// DeleteConversation обрабатывает DELETE /api/v1/admin/insights/conversations/{id}
func (h *InsightsHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	in := conversationInput{ID: chi.URLParam(r, "id")}

	if _, err := h.delete(r.Context(), audit.CallFromRequest(r), in); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// adminID идентификатор вызывающего. Операции вызываются только после проверки роли,
// поэтому identity в контексте всегда есть.
func adminID(ctx context.Context) string {
	identity, _ := reqctx.IdentityFrom(ctx)
	return identity.SubjectID
}
