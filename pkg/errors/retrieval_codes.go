package errors

import "google.golang.org/grpc/codes"

// 检索服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 21 (检索服务)
// - BB: 类别代码
// - CCC: 序号

func init() {
	RegisterService(ServiceRetrieval, "retrieval")
}

var (
	// 请求参数错误 (类别 01)
	ErrRetrievalInvalidRequest = Register(New(MakeCode(ServiceRetrieval, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrInvalidWeights          = Register(New(MakeCode(ServiceRetrieval, CategoryRequest, 2), 400, codes.InvalidArgument, "Fusion weights must be non-negative with a positive sum", "融合权重无效"))
	ErrInvalidSourceStatus     = Register(New(MakeCode(ServiceRetrieval, CategoryRequest, 3), 400, codes.InvalidArgument, "Unknown source status", "未知的源状态"))
	ErrEmptyQuery              = Register(New(MakeCode(ServiceRetrieval, CategoryRequest, 4), 400, codes.InvalidArgument, "Query must carry query_text or query_vector", "查询内容为空"))

	// 资源错误 (类别 04)
	ErrSourceNotFound = Register(New(MakeCode(ServiceRetrieval, CategoryResource, 1), 404, codes.NotFound, "Source not found", "知识源不存在"))
	ErrRecordNotFound = Register(New(MakeCode(ServiceRetrieval, CategoryResource, 2), 404, codes.NotFound, "Retrieval record not found", "检索审计记录不存在"))
	ErrChunkNotFound  = Register(New(MakeCode(ServiceRetrieval, CategoryResource, 3), 404, codes.NotFound, "Chunk not found", "分块不存在"))

	// 冲突错误 (类别 05)
	ErrConflictingToggle  = Register(New(MakeCode(ServiceRetrieval, CategoryConflict, 1), 409, codes.Aborted, "Conflicting toggle in progress for this source", "该知识源存在并发状态切换"))
	ErrSourceExists       = Register(New(MakeCode(ServiceRetrieval, CategoryConflict, 2), 409, codes.AlreadyExists, "Source already registered", "知识源已注册"))
	ErrSourceQuarantined  = Register(New(MakeCode(ServiceRetrieval, CategoryConflict, 3), 409, codes.FailedPrecondition, "Quarantined sources cannot change status", "隔离的知识源不可恢复"))
	ErrToggleCASMismatch  = Register(New(MakeCode(ServiceRetrieval, CategoryConflict, 4), 409, codes.Aborted, "Source status changed concurrently", "源状态被并发修改"))

	// 内部错误 (类别 07)
	ErrFusionFailed = Register(New(MakeCode(ServiceRetrieval, CategoryInternal, 1), 500, codes.Internal, "Score fusion failed", "分数融合失败"))
	ErrAuditWrite   = Register(New(MakeCode(ServiceRetrieval, CategoryInternal, 2), 500, codes.Internal, "Audit record write failed", "审计记录写入失败"))
	ErrEmbedding    = Register(New(MakeCode(ServiceRetrieval, CategoryInternal, 3), 500, codes.Internal, "Query embedding failed", "查询向量化失败"))
	ErrIngestFailed = Register(New(MakeCode(ServiceRetrieval, CategoryInternal, 4), 500, codes.Internal, "Document ingestion failed", "文档摄取失败"))

	// 服务不可用 (类别 10)
	ErrRetrievalUnavailable = Register(New(MakeCode(ServiceRetrieval, CategoryNetwork, 1), 503, codes.Unavailable, "Vector index unavailable", "向量索引不可用"))

	// 超时 (类别 11)
	ErrRetrievalTimeout = Register(New(MakeCode(ServiceRetrieval, CategoryTimeout, 1), 504, codes.DeadlineExceeded, "Retrieval timed out", "检索超时"))
)
