package api

import "time"

// AuditEntry запись журнала аудита
type AuditEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMs *int64    `json:"processing_time_ms,omitempty"`
	ID               string    `json:"id"`
	AdminID          string    `json:"admin_id"`
	Action           string    `json:"action"`
	ResourceID       string    `json:"resource_id,omitempty"`
	Details          string    `json:"details"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
	Outcome          string    `json:"outcome"`
	CorrelationID    string    `json:"correlation_id"`
}

// AuditListResponse выборка журнала аудита
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// IPRuleRequest запрос на добавление правила списка разрешенных адресов
type IPRuleRequest struct {
	CIDR string `json:"cidr"`           // адрес или подсеть, например 10.0.0.0/8
	Note string `json:"note,omitempty"` // комментарий
}

// IPRule правило списка разрешенных адресов
type IPRule struct {
	CreatedAt time.Time `json:"created_at"`
	CIDR      string    `json:"cidr"`
	Note      string    `json:"note,omitempty"`
}

// IPRuleListResponse список правил. Пустой список означает, что доступ открыт со всех адресов.
type IPRuleListResponse struct {
	Rules []IPRule `json:"rules"`
}
