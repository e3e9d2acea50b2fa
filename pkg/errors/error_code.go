package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown        ErrorCode = 1
	ErrCodeNotInitialized ErrorCode = 2
	ErrCodeShutdown       ErrorCode = 3

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidTradeRequest  ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidVolume        ErrorCode = 105
	ErrCodeInvalidPrice         ErrorCode = 106
	ErrCodeInvalidTimeframe     ErrorCode = 107
	ErrCodeInvalidDateRange     ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidLeverage      ErrorCode = 110
	ErrCodeInvalidModelling     ErrorCode = 111
	ErrCodeInvalidExpiration    ErrorCode = 112
	ErrCodeUnknownConfigKey     ErrorCode = 113

	// History errors (200-299)
	ErrCodeSymbolNotFound   ErrorCode = 200
	ErrCodeStoreUnavailable ErrorCode = 201
	ErrCodeQueryFailed      ErrorCode = 202
	ErrCodeNoHistoryData    ErrorCode = 203
	ErrCodeSpecNotFound     ErrorCode = 204
	ErrCodeSymbolNotVisible ErrorCode = 205

	// Download errors (300-399)
	ErrCodeDownloadFailed    ErrorCode = 300
	ErrCodeWriteFailed       ErrorCode = 301
	ErrCodeParseFailed       ErrorCode = 302
	ErrCodeInvalidSource     ErrorCode = 303
	ErrCodeSourceUnsupported ErrorCode = 304

	// Gateway errors (400-499)
	ErrCodeBridgeUnreachable ErrorCode = 400
	ErrCodeBridgeProtocol    ErrorCode = 401
	ErrCodeBridgeStatus      ErrorCode = 402
	ErrCodeStreamClosed      ErrorCode = 403
	ErrCodeVersionMismatch   ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeOrderFailed        ErrorCode = 500
	ErrCodePositionNotFound   ErrorCode = 501
	ErrCodeOrderNotFound      ErrorCode = 502
	ErrCodeTickUnavailable    ErrorCode = 503
	ErrCodeNotEnoughMoney     ErrorCode = 504
	ErrCodeTradeNotAllowed    ErrorCode = 505
	ErrCodeUnknownTradeAction ErrorCode = 506

	// Tester errors (600-699)
	ErrCodeTesterInitFailed  ErrorCode = 600
	ErrCodeTesterConfigError ErrorCode = 601
	ErrCodeReplayFailed      ErrorCode = 602
	ErrCodeStrategyFailed    ErrorCode = 603
	ErrCodeReportWriteFailed ErrorCode = 604
	ErrCodeNoSymbolsLoaded   ErrorCode = 605
	ErrCodeStrategyNotFound  ErrorCode = 606
)
