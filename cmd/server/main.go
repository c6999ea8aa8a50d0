package main

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/inkwave/member-back/internal/config"
	"github.com/inkwave/member-back/internal/dao"
	"github.com/inkwave/member-back/internal/handlers"
	"github.com/inkwave/member-back/internal/services"

	"net/http"

	mux "github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupLogging(logLevel string) {
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "info":
		slog.SetLogLoggerLevel(slog.LevelInfo)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	}
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) *gorm.DB {

	sqlCfg := cfg.Mysql
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		sqlCfg.Username, sqlCfg.Password, sqlCfg.Host, sqlCfg.Port, sqlCfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		PrepareStmt: true, // 开启预编译提升性能
		NowFunc: func() time.Time {
			return time.Now().UTC() // 写入用 UTC
		},
	})
	if err != nil {
		log.Fatal("Could not connect to the database", err)
	}

	// 获取底层*sql.DB对象并配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Get underlying sql.DB failed", err)
	}

	// 关键连接池配置
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// 添加连接健康检查
	go func() {
		for {
			time.Sleep(1 * time.Minute)
			if err := sqlDB.Ping(); err != nil {
				log.Printf("Database connection health check failed: %v", err)
			}
		}
	}()

	return db
}

// startServer 启动HTTP服务器
func startServer(router *mux.Router, cfg *config.Config) {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", cfg.ServerPort),
		Handler: router,
	}

	slog.Info("Starting HTTPS server: " + server.Addr + "...")

	err := server.ListenAndServeTLS(cfg.Tls.CertPath, cfg.Tls.KeyPath)
	if err != nil {
		slog.Error("Failed to start HTTPS server: " + err.Error())
	}
}

func main() {

	cfg := config.GetConfig()

	// 设置日志级别
	setupLogging(cfg.Loglevel)

	// 初始化数据库连接
	db := initDatabase(cfg)

	// 创建数据访问层
	repo := dao.NewMysqlRepository(db)

	// 组装服务
	jwtService := services.NewJWTService()
	feed := services.NewReviewFeed(jwtService, time.Minute*10)
	membership := services.NewMembershipService(repo)
	orderService := services.NewOrderService(repo, membership, feed)

	// 设置路由
	router := setupRoutes(orderService, feed, cfg)

	// 启动HTTP服务器
	startServer(router, cfg)
}

// setupRoutes 设置路由
func setupRoutes(orderService *services.OrderService, feed *services.ReviewFeed, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()

	// 创建处理器
	h := handlers.NewOrderHandler(orderService, feed, cfg.ProofPath, cfg.ProofMaxSizeMB)

	// 设置中间件
	midWares := []handlers.Middleware{
		handlers.ApiAuthCheck,
		handlers.JWTMiddleware,
	}

	// 凭证提交限流
	qps := cfg.ProofSubmitQPS
	if qps <= 0 {
		qps = 5
	}
	proofLimiter := rate.NewLimiter(rate.Limit(qps), int(qps))
	proofMidWares := append([]handlers.Middleware{handlers.RateLimit(proofLimiter)}, midWares...)

	r.HandleFunc("/api/v1/orders", handlers.WithMidWare(h.CreateOrder, midWares...)).Methods("POST")
	r.HandleFunc("/api/v1/orders", handlers.WithMidWare(h.GetOrders, midWares...)).Methods("GET")

	// 员工审核入口
	r.HandleFunc("/api/v1/orders/review", handlers.WithMidWare(h.StaffReview, midWares...)).Methods("POST")
	r.HandleFunc("/api/v1/orders/refund/review", handlers.WithMidWare(h.DecideRefund, midWares...)).Methods("POST")

	r.HandleFunc("/api/v1/orders/{order_id}", handlers.WithMidWare(h.GetOrder, midWares...)).Methods("GET")
	r.HandleFunc("/api/v1/orders/{order_id}/proof", handlers.WithMidWare(h.SubmitProof, proofMidWares...)).Methods("POST")
	r.HandleFunc("/api/v1/orders/{order_id}/refund", handlers.WithMidWare(h.RequestRefund, midWares...)).Methods("POST")

	// 审核后台实时通道
	r.HandleFunc("/ws", h.UpgradeWS).Methods("GET")

	return r
}
