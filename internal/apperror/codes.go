package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Strategy error codes
const (
	// Argument validation
	CodeSwapDataMissing             Code = "SWAP_DATA_MISSING"
	CodeNoArguments                 Code = "NO_ARGUMENTS"
	CodeNoOperationBuilt            Code = "NO_OPERATION_BUILT"
	CodeUnsupportedProtocolVersion  Code = "UNSUPPORTED_PROTOCOL_VERSION"
	CodeUnsupportedNetwork          Code = "UNSUPPORTED_NETWORK"
	CodeInvalidRiskRatio            Code = "INVALID_RISK_RATIO"
	CodeInvalidAmount               Code = "INVALID_AMOUNT"
	CodeUnknownToken                Code = "UNKNOWN_TOKEN_NOT_FOUND"
	CodeOperationDefinitionMismatch Code = "OPERATION_DEFINITION_MISMATCH"
	CodeAddressNotConfigured        Code = "ADDRESS_NOT_CONFIGURED"

	// Simulation
	CodeSimulationFailed  Code = "SIMULATION_FAILED"
	CodeTargetUnreachable Code = "TARGET_UNREACHABLE"

	// Encoding
	CodeEncodingFailed Code = "ENCODING_FAILED"
	CodeAmountOverflow Code = "AMOUNT_OVERFLOW"

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeEModeUnsupported         Code = "EMODE_UNSUPPORTED"

	// Swap aggregator errors
	CodeSwapQuoteFailed Code = "SWAP_QUOTE_FAILED"
	CodeInvalidQuote    Code = "INVALID_QUOTE"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
