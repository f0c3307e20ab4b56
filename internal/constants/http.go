package constants

// HTTP头部
const (
	HTTPHeaderContentType = "Content-Type"
	HTTPHeaderXRequestID  = "X-Request-ID"
)

// 内容类型
const (
	ContentTypeJSON = "application/json"
)

// API 路径
const (
	APIPrefix          = "/api/v1"
	PathHealth         = "/health"
	PathMetrics        = "/metrics"
	PathSession        = "/session"
	PathSessionConnect = "/session/connect"
	PathSessionLeave   = "/session/disconnect"
	PathSessionClear   = "/session/clear-error"
	PathSessionPeers   = "/session/peers"
	PathSessionStream  = "/session/stream"
	PathDiagnostics    = "/diagnostics"
)
