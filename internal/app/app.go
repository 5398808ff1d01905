package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/db"
	adminapi "github.com/latchwork/latchd/internal/http/api/admin"
	"github.com/latchwork/latchd/internal/http/api/hardware"
	"github.com/latchwork/latchd/internal/metrics"
	"github.com/latchwork/latchd/internal/models"
	"github.com/latchwork/latchd/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Environment variables for bootstrapping the first admin account.
const (
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the access control server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or %s)", config.EnvJWTSecret)
	}

	policyMode, errPolicy := config.LoadPolicyMode(configPath)
	if errPolicy != nil {
		return errPolicy
	}

	if errAdmin := ensureInitialAdmin(conn); errAdmin != nil {
		return errAdmin
	}

	policy, errMode := access.PolicyFor(policyMode)
	if errMode != nil {
		return errMode
	}

	recorder := audit.NewRecorder(conn)
	gate := access.NewGate(conn, recorder)
	engine := access.NewEngine(conn, policy, gate, recorder)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	hardware.Register(r, engine)
	adminapi.RegisterAdminRoutes(r, conn, jwtCfg, gate, recorder)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if defaultPort <= 0 {
		defaultPort = 8000
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", defaultPort),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":   server.Addr,
			"policy": policyMode,
		}).Info("starting access control server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// ensureInitialAdmin seeds the first admin account from the environment.
// It does nothing once any admin exists or when the variables are unset.
func ensureInitialAdmin(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(EnvAdminUsername))
	password := os.Getenv(EnvAdminPassword)
	if username == "" || password == "" {
		log.Warnf("no admin accounts exist; set %s and %s to bootstrap one", EnvAdminUsername, EnvAdminPassword)
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash, Role: models.RoleAdmin, Active: true}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.Infof("bootstrapped admin account @%s", username)
	return nil
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}
