// routecore 路线约束引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/routecore/internal/config"
	"github.com/paiban/routecore/internal/database"
	"github.com/paiban/routecore/internal/metrics"
	"github.com/paiban/routecore/internal/repository"
	"github.com/paiban/routecore/pkg/construction/constraint"
	"github.com/paiban/routecore/pkg/construction/constraint/builtin"
	"github.com/paiban/routecore/pkg/logger"
	"github.com/paiban/routecore/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("配置校验失败")
		os.Exit(1)
	}

	fmt.Printf("routecore 路线约束引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	metrics.RegisterDefault()

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("约束管线构建失败")
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		db    *database.DB
		fleet *model.Registry
	)
	if cfg.Database.Enabled() {
		db, err = database.New(ctx, &cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		fleet, err = preloadFleet(ctx, db, cfg.Database.FleetID)
		if err != nil {
			logger.Error().Err(err).Msg("车队预加载失败")
			os.Exit(1)
		}
		metrics.FleetActors.Set(float64(len(fleet.All())))
	}

	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok", "service": cfg.App.Name}
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = err.Error()
			}
		}
		writeJSON(w, status, body)
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// 约束管线摘要
	mux.HandleFunc("/api/v1/constraints", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, pipeline.Summary())
	})

	// 车队执行者及占用情况
	mux.HandleFunc("/api/v1/fleet", fleetHandler(fleet))

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	port := fmt.Sprintf("%d", cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      requestIDMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// buildPipeline 按配置组装约束管线
func buildPipeline(cfg *config.Config) (*constraint.Pipeline, error) {
	pipeline := constraint.NewPipeline()
	if err := pipeline.AddModule(builtin.NewBreakModuleFromConfig(cfg.Breaks)); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// preloadFleet 从数据库加载车队执行者
func preloadFleet(ctx context.Context, db *database.DB, fleetID string) (*model.Registry, error) {
	id, err := uuid.Parse(fleetID)
	if err != nil {
		return nil, fmt.Errorf("无效的车队ID %q: %w", fleetID, err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return repository.NewFleetRepository(db).SeedRegistry(loadCtx, id)
}

// ActorView 执行者摘要
type ActorView struct {
	VehicleID  string  `json:"vehicle_id"`
	ShiftIndex int     `json:"shift_index"`
	Profile    string  `json:"profile"`
	ShiftStart float64 `json:"shift_start"`
	ShiftEnd   float64 `json:"shift_end"`
	Used       bool    `json:"used"`
}

// FleetView 车队摘要
type FleetView struct {
	Loaded    bool        `json:"loaded"`
	Total     int         `json:"total"`
	Available int         `json:"available"`
	Used      int         `json:"used"`
	Actors    []ActorView `json:"actors"`
}

// newFleetView 汇总注册表中的执行者，registry 为 nil 表示未预加载车队
func newFleetView(registry *model.Registry) FleetView {
	view := FleetView{Actors: make([]ActorView, 0)}
	if registry == nil {
		return view
	}

	actors := registry.All()
	view.Loaded = true
	view.Total = len(actors)
	view.Available = len(registry.Available())
	view.Used = view.Total - view.Available

	for _, a := range actors {
		dimens := a.Vehicle.Dimensions
		id, _ := dimens.String(model.DimenID)
		shift, _ := dimens.Int(model.DimenShiftIndex)
		view.Actors = append(view.Actors, ActorView{
			VehicleID:  id,
			ShiftIndex: shift,
			Profile:    a.Vehicle.Profile,
			ShiftStart: a.Detail.Time.Start,
			ShiftEnd:   a.Detail.Time.End,
			Used:       registry.IsUsed(a),
		})
	}
	return view
}

// fleetHandler 返回车队摘要
func fleetHandler(registry *model.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, newFleetView(registry))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(requestIDKey).(string)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("请求处理")
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
