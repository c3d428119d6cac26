package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidMultiplier    ErrorCode = 111
	ErrCodeInvalidThreshold     ErrorCode = 112

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeInvalidBarSeries      ErrorCode = 205

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound    ErrorCode = 400
	ErrCodeStrategyConfigError ErrorCode = 401
	ErrCodeUnknownSeries       ErrorCode = 402
	ErrCodeVersionMismatch     ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeOrderFailed         ErrorCode = 500
	ErrCodePositionNotFound    ErrorCode = 501
	ErrCodeRiskRejected        ErrorCode = 503
	ErrCodeInvalidTransition   ErrorCode = 504
	ErrCodeReconcileRequired   ErrorCode = 505
	ErrCodeProtectionNotPlaced ErrorCode = 506
	ErrCodePreRunCheckFailed   ErrorCode = 507
	ErrCodeTooManyErrors       ErrorCode = 508

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoStrategies ErrorCode = 604
	ErrCodeBacktestFailed       ErrorCode = 609
	ErrCodeBacktestCancelled    ErrorCode = 610

	// Exchange errors (700-799)
	ErrCodeExchangeAuth        ErrorCode = 700
	ErrCodeExchangeRateLimit   ErrorCode = 701
	ErrCodeExchangeRejected    ErrorCode = 702
	ErrCodeExchangeTimeout     ErrorCode = 703
	ErrCodeExchangeMaintenance ErrorCode = 704

	// Persistence errors (800-899)
	ErrCodeJournalWriteFailed ErrorCode = 800
	ErrCodeJournalNotReady    ErrorCode = 801

	// Notification and server errors (900-999)
	ErrCodeNotificationFailed ErrorCode = 900
	ErrCodeServerFailed       ErrorCode = 901
)
