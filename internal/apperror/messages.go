package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Argument validation
	CodeSwapDataMissing:             "Swap data is missing",
	CodeNoArguments:                 "At least one argument needs to be provided",
	CodeNoOperationBuilt:            "No operation built. Check your arguments.",
	CodeUnsupportedProtocolVersion:  "No operation found for Aave protocol version",
	CodeUnsupportedNetwork:          "Network is not supported",
	CodeInvalidRiskRatio:            "Invalid risk ratio",
	CodeInvalidAmount:               "Invalid amount",
	CodeUnknownToken:                "Token not found in network table",
	CodeOperationDefinitionMismatch: "Operation calls do not match the registered definition",
	CodeAddressNotConfigured:        "Contract address is not configured for network",

	// Simulation
	CodeSimulationFailed:  "Position simulation failed",
	CodeTargetUnreachable: "Target risk ratio cannot be reached",

	// Encoding
	CodeEncodingFailed: "ABI encoding failed",
	CodeAmountOverflow: "Amount does not fit in uint256",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Contract call failed",
	CodeEModeUnsupported:         "Protocol has no e-mode categories",

	// Swap aggregator errors
	CodeSwapQuoteFailed: "Swap quote request failed",
	CodeInvalidQuote:    "Swap quote is invalid",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open, too many requests",
}
