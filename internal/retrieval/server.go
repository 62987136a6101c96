// Package retrieval provides the hybrid retrieval service server implementation.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
	"github.com/kart-io/provenance/internal/retrieval/handler"
	"github.com/kart-io/provenance/internal/retrieval/router"
	"github.com/kart-io/provenance/internal/retrieval/store"
	"github.com/kart-io/provenance/pkg/component/milvus"
	"github.com/kart-io/provenance/pkg/component/mysql"
	"github.com/kart-io/provenance/pkg/component/storage"
	"github.com/kart-io/provenance/pkg/infra/app"
	"github.com/kart-io/provenance/pkg/infra/pool"
	"github.com/kart-io/provenance/pkg/infra/server"
	"github.com/kart-io/provenance/pkg/infra/tracing"
	"github.com/kart-io/provenance/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/provenance/pkg/llm/ollama"

	cacheopts "github.com/kart-io/provenance/pkg/options/cache"
	llmopts "github.com/kart-io/provenance/pkg/options/llm"
	logopts "github.com/kart-io/provenance/pkg/options/logger"
	middlewareopts "github.com/kart-io/provenance/pkg/options/middleware"
	milvusopts "github.com/kart-io/provenance/pkg/options/milvus"
	retrievalopts "github.com/kart-io/provenance/pkg/options/retrieval"
	grpcopts "github.com/kart-io/provenance/pkg/options/server/grpc"
	httpopts "github.com/kart-io/provenance/pkg/options/server/http"
	tracingopts "github.com/kart-io/provenance/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "provenance-retrieval"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	GRPCOptions      *grpcopts.Options
	LogOptions       *logopts.Options
	MySQLOptions     *mysql.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	RetrievalOptions *retrievalopts.Options
	CacheOptions     *cacheopts.Options
	TracingOptions   *tracingopts.Options
	RecoveryOptions  *middlewareopts.RecoveryOptions
	RequestIDOptions *middlewareopts.RequestIDOptions
	LoggerOptions    *middlewareopts.LoggerOptions
	CORSOptions      *middlewareopts.CORSOptions
	TimeoutOptions   *middlewareopts.TimeoutOptions
	HealthOptions    *middlewareopts.HealthOptions
	MetricsOptions   *middlewareopts.MetricsOptions
	PprofOptions     *middlewareopts.PprofOptions
	ShutdownTimeout  time.Duration
}

// Server represents the retrieval server.
type Server struct {
	srv     *server.Manager
	closers []func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting retrieval service...")

	var closers []func()

	// 2. 初始化链路追踪，未启用时查询路径不产生 span
	if cfg.TracingOptions != nil && cfg.TracingOptions.Enabled {
		tp, err := tracing.New(&tracing.Config{
			ServiceName:    Name,
			ServiceVersion: app.GetVersion(),
			Exporter:       cfg.TracingOptions.Exporter,
			Endpoint:       cfg.TracingOptions.Endpoint,
			SampleRate:     cfg.TracingOptions.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		})
	}

	// 3. 初始化 MySQL，承载源注册表、原文元数据与审计记录
	mysqlClient, err := mysql.New(cfg.MySQLOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql: %w", err)
	}
	stores := storage.NewManager()
	stores.MustRegister("mysql-primary", mysqlClient)
	closers = append(closers, func() { _ = stores.CloseAll() })
	db := mysqlClient.DB()

	rawStore, err := store.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate raw store: %w", err)
	}
	auditStore, err := store.NewGormAuditStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate audit store: %w", err)
	}
	logger.Info("Relational stores initialized")

	// 4. 初始化 Milvus 向量索引
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	closers = append(closers, func() { _ = milvusClient.Close(context.Background()) })

	index := store.NewMilvusIndex(milvusClient, cfg.RetrievalOptions.Collection)
	if err := index.EnsureCollection(ctx, &store.CollectionConfig{
		Name:        cfg.RetrievalOptions.Collection,
		Description: "hybrid retrieval chunk index",
		Dimension:   cfg.RetrievalOptions.EmbeddingDim,
	}); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	logger.Infow("Chunk index initialized",
		"collection", cfg.RetrievalOptions.Collection,
		"dimension", cfg.RetrievalOptions.EmbeddingDim,
	)

	// 5. 初始化 Redis 查询缓存，连接失败时降级为关闭缓存
	queryCache := cfg.newQueryCache(&closers)

	// 6. 初始化 Embedding 供应商
	var embedder llm.EmbeddingProvider
	if cfg.EmbeddingOptions != nil && cfg.EmbeddingOptions.Provider != "" {
		embedder, err = llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		logger.Infow("Embedding provider initialized",
			"provider", cfg.EmbeddingOptions.Provider,
			"model", cfg.EmbeddingOptions.Model,
		)
	} else {
		logger.Warn("No embedding provider configured, requests must carry query_vector")
	}

	// 7. 后台工作池：切换传播与异步审计共用
	workers, err := pool.NewPool("retrieval-background", pool.BackgroundPool, pool.BackgroundPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	closers = append(closers, workers.Release)

	// 8. 初始化 Biz 层
	registry, err := biz.NewSourceRegistry(ctx, rawStore)
	if err != nil {
		return nil, fmt.Errorf("failed to load source registry: %w", err)
	}

	coordOpts := []biz.CoordinatorOption{
		biz.WithOverFetchFactor(cfg.RetrievalOptions.OverFetchFactor),
		biz.WithPropagationDeadline(cfg.RetrievalOptions.PropagationDeadline),
	}
	if queryCache != nil {
		coordOpts = append(coordOpts, biz.WithInvalidator(queryCache))
	}
	coordinator := biz.NewCoordinator(registry, index, workers, coordOpts...)
	coordinator.Start()
	closers = append(closers, coordinator.Stop)

	audit := biz.NewAuditTrail(auditStore, biz.AuditMode(cfg.RetrievalOptions.AuditMode), workers)

	engineOpts := []biz.EngineOption{
		biz.WithSimilarityMetric(biz.SimilarityMetric(cfg.RetrievalOptions.SimilarityMetric)),
	}
	if w := cfg.RetrievalOptions.Weights; w != nil {
		engineOpts = append(engineOpts, biz.WithDefaultWeights(model.FusionWeights{
			Similarity:  w.Similarity,
			Reliability: w.Reliability,
			Confidence:  w.Confidence,
		}))
	}
	if queryCache != nil {
		engineOpts = append(engineOpts, biz.WithQueryCache(queryCache))
	}
	if embedder != nil {
		engineOpts = append(engineOpts, biz.WithEmbedder(embedder))
	}
	engine := biz.NewEngine(coordinator, registry, index, rawStore, audit, engineOpts...)

	ingester := biz.NewIngester(registry, index, rawStore, embedder, &biz.IngesterConfig{
		ChunkSize:    cfg.RetrievalOptions.ChunkSize,
		ChunkOverlap: cfg.RetrievalOptions.ChunkOverlap,
	})

	service := biz.NewRetrievalService(engine, registry, ingester, audit, index, rawStore)
	logger.Infow("Retrieval service initialized",
		"audit.mode", cfg.RetrievalOptions.AuditMode,
		"cache.enabled", queryCache != nil,
		"over_fetch_factor", cfg.RetrievalOptions.OverFetchFactor,
	)

	// 9. 初始化 Handler 层
	h := handler.NewHandler(service)

	// 10. 初始化服务器
	serverManager := server.NewManager(
		server.WithHTTPOptions(cfg.HTTPOptions),
		server.WithGRPCOptions(cfg.GRPCOptions),
		server.WithMiddleware(cfg.GetMiddlewareOptions()),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	// 11. 注册路由，就绪探针检查已注册存储后端的连通性
	ready := func() error {
		for _, status := range stores.HealthCheckAll(context.Background()) {
			if !status.Healthy {
				return fmt.Errorf("%s: %w", status.Name, status.Error)
			}
		}
		return nil
	}
	if err := router.Register(serverManager, h, ready); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Info("Retrieval service is ready")
	return &Server{srv: serverManager, closers: closers}, nil
}

// newQueryCache 创建 Redis 查询缓存。Redis 不可达时记录告警并返回 nil，
// 查询路径照常工作，只是没有缓存。
func (cfg *Config) newQueryCache(closers *[]func()) *biz.QueryCache {
	if cfg.CacheOptions == nil || !cfg.CacheOptions.Enabled {
		logger.Info("Query cache is disabled")
		return nil
	}
	redisOpts := cfg.CacheOptions.Redis
	if redisOpts == nil {
		logger.Warn("Cache is enabled but no Redis configuration provided")
		return nil
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisOpts.Host, redisOpts.Port),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		MaxRetries:   redisOpts.MaxRetries,
		PoolSize:     redisOpts.PoolSize,
		MinIdleConns: redisOpts.MinIdleConns,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warnw("failed to connect to redis, query cache disabled", "error", err.Error())
		_ = redisClient.Close()
		return nil
	}

	*closers = append(*closers, func() { _ = redisClient.Close() })
	logger.Infow("Query cache initialized",
		"host", redisOpts.Host,
		"port", redisOpts.Port,
		"ttl", cfg.CacheOptions.TTL,
	)
	return biz.NewQueryCache(redisClient, &biz.QueryCacheConfig{
		Enabled:   true,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	})
}

// Run starts the server and listens for termination signals.
func (s *Server) Run(_ context.Context) error {
	defer func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			s.closers[i]()
		}
	}()
	return s.srv.Run()
}

// GetMiddlewareOptions 从各个配置构建中间件选项。
func (cfg *Config) GetMiddlewareOptions() *middlewareopts.Options {
	opts := middlewareopts.NewOptions()

	if cfg.RecoveryOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareRecovery, cfg.RecoveryOptions)
	}
	if cfg.RequestIDOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareRequestID, cfg.RequestIDOptions)
	}
	if cfg.LoggerOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareLogger, cfg.LoggerOptions)
	}
	if cfg.CORSOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareCORS, cfg.CORSOptions)
	}
	if cfg.TimeoutOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareTimeout, cfg.TimeoutOptions)
	}
	if cfg.HealthOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareHealth, cfg.HealthOptions)
	}
	if cfg.MetricsOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewareMetrics, cfg.MetricsOptions)
	}
	if cfg.PprofOptions != nil {
		opts.SetConfig(middlewareopts.MiddlewarePprof, cfg.PprofOptions)
	}

	return opts
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	if cfg.EmbeddingOptions != nil && cfg.EmbeddingOptions.Provider != "" {
		fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	}
	fmt.Printf("  Collection: %s\n", cfg.RetrievalOptions.Collection)
}
