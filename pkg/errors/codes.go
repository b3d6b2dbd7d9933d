package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Contract Module Error Codes
const (
	ErrCodeContractNotFound      ErrorCode = "CTR_001"
	ErrCodeContractAlreadyExists ErrorCode = "CTR_002"
	ErrCodeContractEmptyText     ErrorCode = "CTR_003"
	ErrCodeContractStoreFailed   ErrorCode = "CTR_004"
	ErrCodeContractInvalidState  ErrorCode = "CTR_005"
)

// Structuring Engine Error Codes
const (
	ErrCodeStructuringFailed   ErrorCode = "STR_001"
	ErrCodeSectionBuildFailed  ErrorCode = "STR_002"
	ErrCodeClauseExtractFailed ErrorCode = "STR_003"
	ErrCodeLayoutModelFailed   ErrorCode = "STR_004"
)

// Classification Error Codes
const (
	ErrCodeRiskModelUnavailable ErrorCode = "CLS_001"
	ErrCodeRiskInferenceFailed  ErrorCode = "CLS_002"
)

// Search / Index Error Codes
const (
	ErrCodeIndexingFailed     ErrorCode = "SRC_001"
	ErrCodeSearchFailed       ErrorCode = "SRC_002"
	ErrCodeVectorStoreFailed  ErrorCode = "SRC_003"
	ErrCodeVectorDimMismatch  ErrorCode = "SRC_004"
	ErrCodeGraphStoreFailed   ErrorCode = "SRC_005"
	ErrCodeObjectStoreFailed  ErrorCode = "SRC_006"
	ErrCodeEventPublishFailed ErrorCode = "SRC_007"
)

// CodeOK is the sentinel code for "no error".
const CodeOK = ErrorCode("OK")

// httpStatusByCode maps error codes to the HTTP status the API layer should emit.
var httpStatusByCode = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeContractNotFound:      http.StatusNotFound,
	ErrCodeContractAlreadyExists: http.StatusConflict,
	ErrCodeContractEmptyText:     http.StatusBadRequest,
	ErrCodeContractStoreFailed:   http.StatusInternalServerError,
	ErrCodeContractInvalidState:  http.StatusConflict,

	ErrCodeStructuringFailed:   http.StatusInternalServerError,
	ErrCodeSectionBuildFailed:  http.StatusInternalServerError,
	ErrCodeClauseExtractFailed: http.StatusInternalServerError,
	ErrCodeLayoutModelFailed:   http.StatusBadGateway,

	ErrCodeRiskModelUnavailable: http.StatusServiceUnavailable,
	ErrCodeRiskInferenceFailed:  http.StatusBadGateway,

	ErrCodeIndexingFailed:     http.StatusInternalServerError,
	ErrCodeSearchFailed:       http.StatusInternalServerError,
	ErrCodeVectorStoreFailed:  http.StatusInternalServerError,
	ErrCodeVectorDimMismatch:  http.StatusBadRequest,
	ErrCodeGraphStoreFailed:   http.StatusInternalServerError,
	ErrCodeObjectStoreFailed:  http.StatusInternalServerError,
	ErrCodeEventPublishFailed: http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status code associated with an ErrorCode.
// Unknown codes map to 500 so that unclassified failures never leak a 2xx.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
