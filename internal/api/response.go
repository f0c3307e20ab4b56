package api

import (
	"encoding/json"
	"net/http"

	"lanlink-core/internal/constants"
	coreerrors "lanlink-core/internal/core/errors"
)

// ResponseData 统一响应结构
type ResponseData struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set(constants.HTTPHeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ResponseData{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, statusCode int, code coreerrors.ErrorCode, message string) {
	w.Header().Set(constants.HTTPHeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ResponseData{Success: false, Error: message, Code: string(code)})
}

// respondErr 按错误码映射 HTTP 状态
func respondErr(w http.ResponseWriter, err error) {
	code := coreerrors.GetCode(err)
	respondError(w, statusFor(code), code, coreerrors.Message(err))
}

func statusFor(code coreerrors.ErrorCode) int {
	switch code {
	case coreerrors.CodeInvalidParam:
		return http.StatusBadRequest
	case coreerrors.CodeInvalidState:
		return http.StatusConflict
	case coreerrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case coreerrors.CodeUnavailable, coreerrors.CodeResourceClosed:
		return http.StatusServiceUnavailable
	case coreerrors.CodeConfigRejected, coreerrors.CodeStartFailed, coreerrors.CodeStopFailed:
		return http.StatusBadGateway
	case coreerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
