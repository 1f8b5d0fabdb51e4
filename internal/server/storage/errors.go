package storage

import "errors"

// Common storage errors
var (
	// ErrAdminNotFound indicates that admin account was not found in storage
	ErrAdminNotFound = errors.New("admin not found")

	// ErrAdminAlreadyExists indicates that admin with this phone number already exists
	ErrAdminAlreadyExists = errors.New("admin already exists")

	// ErrConversationNotFound indicates that conversation was not found or was deleted
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrRuleNotFound indicates that IP rule was not found
	ErrRuleNotFound = errors.New("ip rule not found")

	// ErrInvalidCIDR indicates that IP rule is neither an IP address nor a CIDR block
	ErrInvalidCIDR = errors.New("invalid ip or cidr")
)
