package models

import "time"

// AuditAction тип события аудита. Набор расширяемый: операции могут объявлять свои значения.
type AuditAction string

const (
	ActionRequestReceived     AuditAction = "REQUEST_RECEIVED"
	ActionMessageSent         AuditAction = "MESSAGE_SENT"
	ActionConversationViewed  AuditAction = "CONVERSATION_VIEWED"
	ActionConversationsListed AuditAction = "CONVERSATIONS_LISTED"
	ActionConversationDeleted AuditAction = "CONVERSATION_DELETED"
	ActionAuditViewed         AuditAction = "AUDIT_VIEWED"
	ActionIPRuleAdded         AuditAction = "IP_RULE_ADDED"
	ActionIPRuleRemoved       AuditAction = "IP_RULE_REMOVED"
	ActionIPRulesListed       AuditAction = "IP_RULES_LISTED"
	ActionBlocked             AuditAction = "BLOCKED"
	ActionRateLimited         AuditAction = "RATE_LIMITED"
	ActionUnauthorized        AuditAction = "UNAUTHORIZED"
	ActionValidationRejected  AuditAction = "VALIDATION_REJECTED"
	ActionError               AuditAction = "ERROR"
)

// AuditOutcome итог события аудита
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "SUCCESS"
	OutcomeFailure AuditOutcome = "FAILURE"
	OutcomeError   AuditOutcome = "ERROR"
)

// AnonymousAdminID подставляется в аудит, когда identity не установлена
const AnonymousAdminID = "anonymous"

// AuditEntry неизменяемая запись журнала аудита
type AuditEntry struct {
	Timestamp        time.Time    `json:"timestamp"`
	ProcessingTimeMs *int64       `json:"processing_time_ms,omitempty"`
	ID               string       `json:"id"`
	AdminID          string       `json:"admin_id"`
	Action           AuditAction  `json:"action"`
	ResourceID       string       `json:"resource_id,omitempty"`
	Details          string       `json:"details"`
	IPAddress        string       `json:"ip_address"`
	UserAgent        string       `json:"user_agent"`
	Outcome          AuditOutcome `json:"outcome"`
	CorrelationID    string       `json:"correlation_id"`
}

// AuditFilter параметры выборки журнала аудита
type AuditFilter struct {
	AdminID string
	Action  AuditAction
	Limit   int
}
