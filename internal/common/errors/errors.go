// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Input / parsing
const (
	ErrCodeParseError       ErrorCode = "PARSE_ERROR"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// Order lifecycle
const (
	ErrCodeOrderNotFound           ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrderState       ErrorCode = "INVALID_ORDER_STATE"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeTransferInProgress      ErrorCode = "TRANSFER_IN_PROGRESS"
	ErrCodeTableUnavailable        ErrorCode = "TABLE_UNAVAILABLE"
	ErrCodeInvalidDiscount         ErrorCode = "INVALID_DISCOUNT"
)

// Users, franchises and locations
const (
	ErrCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrCodeUnauthorizedActor ErrorCode = "UNAUTHORIZED_ACTOR"
	ErrCodeDuplicateUser     ErrorCode = "DUPLICATE_USER"
	ErrCodeLocationNotFound  ErrorCode = "LOCATION_NOT_FOUND"
	ErrCodeLocationMismatch  ErrorCode = "LOCATION_MISMATCH"
	ErrCodeFranchiseNotFound ErrorCode = "FRANCHISE_NOT_FOUND"
	ErrCodeFranchiseInactive ErrorCode = "FRANCHISE_INACTIVE"
)

// Infrastructure
const (
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed          ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout                  ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed          ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheUnavailable              ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"
	ErrCodeIdentityProviderFailed        ErrorCode = "IDENTITY_PROVIDER_FAILED"
	ErrCodeNotificationSendFailed        ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal                      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// New builds a StandardError whose retryability follows GetRetryCount.
func New(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

// Wrap builds a StandardError that keeps err reachable through errors.Is / errors.As.
func Wrap(code ErrorCode, message string, err error) *StandardError {
	e := New(code, message, "")
	if err != nil {
		e.Details = err.Error()
		e.cause = err
	}
	return e
}

func NewParseError(err error) *StandardError {
	return Wrap(ErrCodeParseError, "Failed to parse job variables", err)
}

func NewValidationError(details string) *StandardError {
	return New(ErrCodeValidationFailed, "Input validation failed", details)
}

func NewOrderNotFoundError(orderID string) *StandardError {
	return New(ErrCodeOrderNotFound, "Order not found", fmt.Sprintf("orderId: %s", orderID))
}

func NewInvalidOrderStateError(orderID, status string) *StandardError {
	return New(ErrCodeInvalidOrderState, "Order is not in a state that allows this operation",
		fmt.Sprintf("orderId: %s, status: %s", orderID, status))
}

func NewTransferInProgressError(orderID string) *StandardError {
	return New(ErrCodeTransferInProgress, "Another transfer of this order is in progress",
		fmt.Sprintf("orderId: %s", orderID))
}

func NewTableUnavailableError(tableID string) *StandardError {
	return New(ErrCodeTableUnavailable, "Table is not available", fmt.Sprintf("tableId: %s", tableID))
}

func NewUserNotFoundError(userID string) *StandardError {
	return New(ErrCodeUserNotFound, "User not found", fmt.Sprintf("userId: %s", userID))
}

func NewUnauthorizedActorError(userID, reason string) *StandardError {
	return New(ErrCodeUnauthorizedActor, "Acting user is not allowed to perform this operation",
		fmt.Sprintf("userId: %s, reason: %s", userID, reason))
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return Wrap(ErrCodeDatabaseConnectionFailed, "Database connection error", err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	e := Wrap(ErrCodeQueryExecutionFailed, "Database query execution error", err)
	e.Details = fmt.Sprintf("queryType: %s, error: %s", queryType, errString(err))
	return e
}

func NewQueryTimeoutError(queryType string) *StandardError {
	return New(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("queryType: %s", queryType))
}

func NewCacheUnavailableError(err error) *StandardError {
	return Wrap(ErrCodeCacheUnavailable, "Redis unavailable", err)
}

func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	e := Wrap(ErrCodeSearchQueryFailed, "Elasticsearch query error", err)
	e.Details = fmt.Sprintf("queryType: %s, error: %s", queryType, errString(err))
	return e
}

func NewIndexNotFoundError(indexName string) *StandardError {
	return New(ErrCodeIndexNotFound, "Elasticsearch index not found", fmt.Sprintf("indexName: %s", indexName))
}

func NewIdentityProviderError(err error) *StandardError {
	return Wrap(ErrCodeIdentityProviderFailed, "Identity provider request failed", err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// knownCodes lets sentinel errors declared as errors.New("CODE") in worker
// packages be recognised without importing them here.
var knownCodes = map[ErrorCode]struct{}{
	ErrCodeParseError: {}, ErrCodeValidationFailed: {},
	ErrCodeOrderNotFound: {}, ErrCodeInvalidOrderState: {}, ErrCodeInvalidStatusTransition: {},
	ErrCodeTransferInProgress: {}, ErrCodeTableUnavailable: {}, ErrCodeInvalidDiscount: {},
	ErrCodeUserNotFound: {}, ErrCodeUnauthorizedActor: {}, ErrCodeDuplicateUser: {},
	ErrCodeLocationNotFound: {}, ErrCodeLocationMismatch: {},
	ErrCodeFranchiseNotFound: {}, ErrCodeFranchiseInactive: {},
	ErrCodeDatabaseConnectionFailed: {}, ErrCodeQueryExecutionFailed: {}, ErrCodeQueryTimeout: {},
	ErrCodeDatabaseInsertFailed: {}, ErrCodeCacheUnavailable: {},
	ErrCodeElasticsearchConnectionFailed: {}, ErrCodeSearchQueryFailed: {}, ErrCodeSearchTimeout: {},
	ErrCodeIndexNotFound: {}, ErrCodeIdentityProviderFailed: {}, ErrCodeNotificationSendFailed: {},
	ErrCodeInternal: {},
}

// GetRetryCount returns how many times the engine should retry a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeCacheUnavailable,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeIdentityProviderFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeTransferInProgress:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// Normalize turns any error into a StandardError. A *StandardError anywhere in
// the chain wins; otherwise the innermost error is checked for a known code
// (the errors.New("CODE") sentinel convention), and INTERNAL_ERROR is the fallback.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	root := err
	for {
		next := stderrors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}

	code := ErrorCode(root.Error())
	if _, ok := knownCodes[code]; ok {
		return Wrap(code, messageFor(code), err)
	}

	e := Wrap(ErrCodeInternal, "Unexpected error", err)
	e.Retryable = false
	return e
}

func messageFor(code ErrorCode) string {
	return strings.ReplaceAll(strings.ToLower(string(code)), "_", " ")
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// CodeOf returns the ErrorCode err normalizes to, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ORDER") || strings.Contains(codeStr, "TRANSFER") ||
		strings.Contains(codeStr, "TABLE") || strings.Contains(codeStr, "DISCOUNT") ||
		strings.Contains(codeStr, "STATUS"):
		return "ORDER"
	case strings.Contains(codeStr, "USER") || strings.Contains(codeStr, "ACTOR") ||
		strings.Contains(codeStr, "IDENTITY"):
		return "IDENTITY"
	case strings.Contains(codeStr, "FRANCHISE") || strings.Contains(codeStr, "LOCATION"):
		return "TENANT"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") ||
		strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
