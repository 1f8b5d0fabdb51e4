// Package audit оборачивает привилегированные операции: определяет вызывающего,
// проверяет допуск, выполняет операцию и записывает ровно одну итоговую запись журнала.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/ids"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/apperror"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ippolicy"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ratelimit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
)

const (
	// MaxResourceIDLen предел длины идентификатора ресурса в записи
	MaxResourceIDLen = 128
	// MaxSummaryLen предел длины описания ошибки или паники в записи
	MaxSummaryLen = 500
)

// Sink принимает записи журнала аудита
type Sink interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

// Limiter ограничитель частоты вызовов
type Limiter interface {
	TryAcquire(key string) ratelimit.Decision
}

// Config зависимости перехватчика
type Config struct {
	Sink    Sink
	Limiter Limiter
	Policy  ippolicy.Policy
	Logger  *slog.Logger
	Metrics *obs.Metrics
	Now     func() time.Time
}

// Interceptor общий для всех обернутых операций. Собственного изменяемого состояния нет.
type Interceptor struct {
	sink    Sink
	limiter Limiter
	policy  ippolicy.Policy
	logger  *slog.Logger
	metrics *obs.Metrics
	now     func() time.Time
}

// NewInterceptor создает перехватчик. Policy по умолчанию пропускает всех.
func NewInterceptor(cfg Config) *Interceptor {
	policy := cfg.Policy
	if policy == nil {
		policy = ippolicy.AllowAll{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Interceptor{
		sink:    cfg.Sink,
		limiter: cfg.Limiter,
		policy:  policy,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// Call данные о вызывающем, собранные на границе транспорта
type Call struct {
	Identity  models.Identity
	IP        string
	UserAgent string
}

// CallFromRequest извлекает identity (если ее положил OptionalAuth), IP и User-Agent
func CallFromRequest(r *http.Request) Call {
	identity, _ := reqctx.IdentityFrom(r.Context())
	return Call{
		Identity:  identity,
		IP:        reqctx.ClientIP(r),
		UserAgent: reqctx.UserAgent(r),
	}
}

// Spec описывает, как аудировать конкретную операцию
type Spec[Req, Resp any] struct {
	// Action записывается при успешном выполнении
	Action models.AuditAction
	// Roles допустимые роли. Пустой список означает отсутствие проверки роли.
	Roles []models.Role
	// Preview возвращает текст ввода для превью; перед записью он маскируется
	Preview func(Req) string
	// ResourceID вызывается и при ошибке, тогда resp имеет нулевое значение
	ResourceID func(Req, Resp) string
	// Summary краткое описание успешного ответа, например длина
	Summary func(Resp) string
}

// Operation обернутая бизнес-операция
type Operation[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Handler операция после обертки
type Handler[Req, Resp any] func(ctx context.Context, call Call, req Req) (Resp, error)

// Wrap оборачивает op. Ошибка op возвращается вызывающему без изменений.
func Wrap[Req, Resp any](ic *Interceptor, spec Spec[Req, Resp], op Operation[Req, Resp]) Handler[Req, Resp] {
	return func(ctx context.Context, call Call, req Req) (resp Resp, err error) {
		// Адрес попадает в журнал, лог и ключ лимитера, длина ограничена в любом случае
		call.IP = reqctx.Truncate(call.IP, reqctx.MaxIPLen)

		adminID := call.Identity.SubjectID
		if adminID == "" {
			adminID = models.AnonymousAdminID
		}

		// Область запроса существует только в производном контексте
		scope := reqctx.Scope{
			CorrelationID: uuid.NewString(),
			AdminID:       adminID,
			IP:            call.IP,
		}
		ctx = reqctx.WithScope(ctx, scope)
		if !call.Identity.IsZero() {
			ctx = reqctx.WithIdentity(ctx, call.Identity)
		}

		preview := ""
		if spec.Preview != nil {
			preview = validation.RedactPreview(spec.Preview(req))
		}

		base := models.AuditEntry{
			AdminID:       adminID,
			IPAddress:     call.IP,
			UserAgent:     call.UserAgent,
			CorrelationID: scope.CorrelationID,
		}

		if denial := ic.admit(ctx, call, spec.Roles, base, preview); denial != nil {
			return resp, denial
		}

		ic.record(ctx, base, models.ActionRequestReceived, models.OutcomeSuccess, "", details(preview, "operation: "+string(spec.Action)), nil)

		start := ic.now()
		finished := false
		defer func() {
			elapsed := ic.now().Sub(start)

			if !finished {
				p := recover()
				ic.record(ctx, base, models.ActionError, models.OutcomeError, "",
					details(preview, summarize(fmt.Sprintf("panic: %v", p))), &elapsed)
				ic.metrics.OperationDone(string(spec.Action), string(models.OutcomeError), elapsed)
				if p != nil {
					panic(p)
				}
				return
			}

			resourceID := ""
			if spec.ResourceID != nil {
				resourceID = spec.ResourceID(req, resp)
			}

			if err == nil {
				summary := "completed"
				if spec.Summary != nil {
					summary = spec.Summary(resp)
				}
				ic.record(ctx, base, spec.Action, models.OutcomeSuccess, resourceID, details(preview, summary), &elapsed)
				ic.metrics.OperationDone(string(spec.Action), string(models.OutcomeSuccess), elapsed)
				return
			}

			action, outcome, summary := classifyFailure(err)
			ic.record(ctx, base, action, outcome, resourceID, details(preview, summary), &elapsed)
			ic.metrics.OperationDone(string(spec.Action), string(outcome), elapsed)
		}()

		resp, err = op(ctx, req)
		finished = true
		return resp, err
	}
}

// admit проверяет IP, квоту и роль. При отказе пишет итоговую запись и возвращает ошибку.
func (ic *Interceptor) admit(ctx context.Context, call Call, roles []models.Role, base models.AuditEntry, preview string) error {
	allowed, err := ic.policy.Allowed(ctx, call.IP)
	if err != nil {
		// Ошибка источника правил трактуется как запрет
		ic.logger.ErrorContext(ctx, "IP policy evaluation failed", slog.String("error", err.Error()))
		allowed = false
	}
	if !allowed {
		ic.logger.WarnContext(ctx, "Request blocked by IP policy", slog.String("ip", call.IP))
		ic.metrics.AdmissionDenied("ip_blocked")
		ic.record(ctx, base, models.ActionBlocked, models.OutcomeFailure, "",
			details(preview, "ip not allowed: "+call.IP), nil)
		return apperror.IPBlocked()
	}

	if ic.limiter != nil {
		key := call.Identity.SubjectID
		if key == "" {
			key = "ip:" + call.IP
		}
		decision := ic.limiter.TryAcquire(key)
		if !decision.Allowed {
			ic.logger.WarnContext(ctx, "Rate limit exceeded",
				slog.Int("remaining_minute", decision.RemainingMinute),
				slog.Int("remaining_hour", decision.RemainingHour),
			)
			ic.metrics.AdmissionDenied("rate_limited")
			ic.record(ctx, base, models.ActionRateLimited, models.OutcomeFailure, "",
				details(preview, fmt.Sprintf("remaining minute: %d; remaining hour: %d",
					decision.RemainingMinute, decision.RemainingHour)), nil)
			return apperror.RateLimited(decision.RemainingMinute, decision.RemainingHour, decision.RetryAfter)
		}
	}

	if len(roles) == 0 {
		return nil
	}

	if call.Identity.IsZero() {
		ic.metrics.AdmissionDenied("unauthenticated")
		ic.record(ctx, base, models.ActionUnauthorized, models.OutcomeFailure, "",
			details(preview, "authentication required"), nil)
		return apperror.Credential("authentication required", nil)
	}

	if !call.Identity.HasRole(roles...) {
		ic.logger.WarnContext(ctx, "Role not permitted", slog.String("role", string(call.Identity.Role)))
		ic.metrics.AdmissionDenied("forbidden")
		ic.record(ctx, base, models.ActionUnauthorized, models.OutcomeFailure, "",
			details(preview, "role not permitted: "+string(call.Identity.Role)), nil)
		return apperror.Forbidden("insufficient privileges")
	}

	return nil
}

// record пишет запись в журнал. Отмена запроса не должна терять запись, ошибки только логируются.
func (ic *Interceptor) record(
	ctx context.Context,
	base models.AuditEntry,
	action models.AuditAction,
	outcome models.AuditOutcome,
	resourceID, text string,
	elapsed *time.Duration,
) {
	entry := base
	entry.Timestamp = ic.now().UTC()
	entry.ID = ids.NewAt(entry.Timestamp)
	entry.Action = action
	entry.Outcome = outcome
	entry.ResourceID = cleanResourceID(resourceID)
	entry.Details = text
	if elapsed != nil {
		ms := elapsed.Milliseconds()
		entry.ProcessingTimeMs = &ms
	}

	if ic.sink == nil {
		return
	}

	if err := ic.sink.AppendAudit(context.WithoutCancel(ctx), &entry); err != nil {
		ic.metrics.AuditWriteFailed()
		ic.logger.ErrorContext(ctx, "Failed to write audit entry",
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
		return
	}
	ic.metrics.AuditEntry(string(action), string(outcome))
}

// classifyFailure выбирает действие и итог для ошибки операции
func classifyFailure(err error) (models.AuditAction, models.AuditOutcome, string) {
	if appErr, ok := apperror.As(err); ok {
		switch appErr.Kind {
		case apperror.KindValidation:
			return models.ActionValidationRejected, models.OutcomeFailure, "reason: " + appErr.Reason
		case apperror.KindCredential, apperror.KindAdmission, apperror.KindNotFound:
			return models.ActionError, models.OutcomeFailure, errorSummary(err)
		}
	}

	var rejection *validation.RejectionError
	if errors.As(err, &rejection) {
		return models.ActionValidationRejected, models.OutcomeFailure, "reason: " + string(rejection.Reason)
	}

	return models.ActionError, models.OutcomeError, errorSummary(err)
}

func errorSummary(err error) string {
	return summarize(fmt.Sprintf("error: %T: %s", err, err.Error()))
}

// summarize ограничивает текст ошибки или паники: ответы внешних сервисов бывают большими
func summarize(s string) string {
	return reqctx.Truncate(s, MaxSummaryLen)
}

// cleanResourceID ограничивает идентификатор ресурса, пришедший из запроса.
// Символы вне набора идентификаторов и адресов заменяются на '*'.
func cleanResourceID(id string) string {
	id = reqctx.Truncate(id, MaxResourceIDLen)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune(".:/-_", r):
			return r
		default:
			return '*'
		}
	}, id)
}

func details(preview, summary string) string {
	parts := make([]string, 0, 2)
	if preview != "" {
		parts = append(parts, "input: "+preview)
	}
	if summary != "" {
		parts = append(parts, summary)
	}
	return strings.Join(parts, "; ")
}
