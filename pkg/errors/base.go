package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK is the zero code returned in success envelopes.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// Request errors (category 01, HTTP 400 family).
var (
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Bad request",
		MessageZH: "请求错误",
	})
	ErrInvalidParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid parameter",
		MessageZH: "参数无效",
	})
	ErrMissingParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Missing required parameter",
		MessageZH: "缺少必需参数",
	})
	ErrInvalidFormat = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 3),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid format",
		MessageZH: "格式无效",
	})
	ErrValidationFailed = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 4),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Validation failed",
		MessageZH: "验证失败",
	})
	ErrRequestTooLarge = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 5),
		HTTP:      http.StatusRequestEntityTooLarge,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Request entity too large",
		MessageZH: "请求体过大",
	})
	ErrUnsupportedMediaType = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 6),
		HTTP:      http.StatusUnsupportedMediaType,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Unsupported media type",
		MessageZH: "不支持的媒体类型",
	})
)

// Resource errors (category 04, HTTP 404).
var (
	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 0),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Resource not found",
		MessageZH: "资源不存在",
	})
	ErrRouteNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 4),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Route not found",
		MessageZH: "路由不存在",
	})
)

// Conflict errors (category 05, HTTP 409).
var (
	ErrConflict = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 0),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Resource conflict",
		MessageZH: "资源冲突",
	})
	ErrAlreadyExists = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Resource already exists",
		MessageZH: "资源已存在",
	})
	ErrDuplicateKey = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 2),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Duplicate key",
		MessageZH: "键值重复",
	})
	ErrVersionConflict = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 3),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Version conflict",
		MessageZH: "版本冲突",
	})
)

// Rate-limit errors (category 06, HTTP 429).
var (
	ErrTooManyRequests = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 0),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Too many requests",
		MessageZH: "请求过于频繁",
	})
	ErrRateLimitExceeded = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 1),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Rate limit exceeded",
		MessageZH: "超出速率限制",
	})
	ErrQuotaExceeded = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 2),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Quota exceeded",
		MessageZH: "配额已用尽",
	})
)

// Internal errors (category 07, HTTP 500).
var (
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})
	ErrUnknown = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Unknown,
		MessageEN: "Unknown error",
		MessageZH: "未知错误",
	})
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Service panic",
		MessageZH: "服务崩溃",
	})
	ErrNotImplemented = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 3),
		HTTP:      http.StatusNotImplemented,
		GRPCCode:  codes.Unimplemented,
		MessageEN: "Not implemented",
		MessageZH: "功能未实现",
	})
)

// Database errors (category 08, HTTP 500).
var (
	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database error",
		MessageZH: "数据库错误",
	})
	ErrDBConnection = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Database connection failed",
		MessageZH: "数据库连接失败",
	})
	ErrDBQuery = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database query failed",
		MessageZH: "数据库查询失败",
	})
	ErrDBTransaction = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 3),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database transaction failed",
		MessageZH: "数据库事务失败",
	})
)

// Cache errors (category 09, HTTP 500).
var (
	ErrCache = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryCache, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Cache error",
		MessageZH: "缓存错误",
	})
	ErrCacheConnection = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryCache, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Cache connection failed",
		MessageZH: "缓存连接失败",
	})
	ErrCacheMiss = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryCache, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.NotFound,
		MessageEN: "Cache miss",
		MessageZH: "缓存未命中",
	})
)

// Network errors (category 10, HTTP 502/503).
var (
	ErrNetwork = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNetwork, 0),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Network error",
		MessageZH: "网络错误",
	})
	ErrServiceUnavailable = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNetwork, 1),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Service unavailable",
		MessageZH: "服务不可用",
	})
	ErrConnectionRefused = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNetwork, 2),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Connection refused",
		MessageZH: "连接被拒绝",
	})
)

// Timeout errors (category 11, HTTP 408/504).
var (
	ErrTimeout = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryTimeout, 0),
		HTTP:      http.StatusGatewayTimeout,
		GRPCCode:  codes.DeadlineExceeded,
		MessageEN: "Operation timeout",
		MessageZH: "操作超时",
	})
	ErrRequestTimeout = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryTimeout, 1),
		HTTP:      http.StatusRequestTimeout,
		GRPCCode:  codes.DeadlineExceeded,
		MessageEN: "Request timeout",
		MessageZH: "请求超时",
	})
	ErrGatewayTimeout = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryTimeout, 2),
		HTTP:      http.StatusGatewayTimeout,
		GRPCCode:  codes.DeadlineExceeded,
		MessageEN: "Gateway timeout",
		MessageZH: "网关超时",
	})
	ErrContextCanceled = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryTimeout, 3),
		HTTP:      499, // client closed request
		GRPCCode:  codes.Canceled,
		MessageEN: "Context canceled",
		MessageZH: "上下文已取消",
	})
)

// Configuration errors (category 12, HTTP 500).
var (
	ErrConfig = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConfig, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Configuration error",
		MessageZH: "配置错误",
	})
	ErrConfigInvalid = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConfig, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Invalid configuration",
		MessageZH: "配置无效",
	})
)
