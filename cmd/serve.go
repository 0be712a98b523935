package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/controller"
	accountsgrpc "github.com/vibast-solutions/ms-go-accounts/app/grpc"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) server and, unless disabled, the gRPC server for the account service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	deps, err := newDependencies()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize dependencies")
	}
	defer deps.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if deps.cfg.Revocation.PurgeInterval > 0 {
		go runPurgeLoop(ctx, deps.accounts, deps.cfg.Revocation.PurgeInterval)
	}

	var grpcServer *grpc.Server
	if deps.cfg.GRPC.Enabled {
		grpcServer = newGRPCServer(deps.cfg, deps.accounts)
		go startGRPCServer(deps.cfg, grpcServer)
	}

	e := newHTTPServer(deps)
	go startHTTPServer(deps.cfg, e)

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}

func newHTTPServer(deps *dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(middleware.Metrics)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	accountController := controller.NewAccountController(deps.accounts, deps.cfg.App.RevealUnknownResetEmail)
	healthController := controller.NewHealthController(deps.db)
	authMiddleware := middleware.NewAuthMiddleware(deps.accounts)

	e.GET("/healthz", healthController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	users := e.Group("/api/v1/users")
	users.POST("/register", accountController.Register)
	users.POST("/login", accountController.Login)
	users.POST("/token/refresh", accountController.RefreshToken)
	users.POST("/reset-password", accountController.RequestPasswordReset)
	users.POST("/reset-password-confirm/:uid/:token", accountController.ConfirmPasswordReset)

	protected := users.Group("")
	protected.Use(authMiddleware.RequireAuth)
	protected.POST("/logout", accountController.Logout)
	protected.GET("/profile", accountController.Profile)

	return e
}

func startHTTPServer(cfg *config.Config, e *echo.Echo) {
	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func newGRPCServer(cfg *config.Config, accounts service.AccountService) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		accountsgrpc.ObservabilityUnaryInterceptor(),
		accountsgrpc.BearerAuthUnaryInterceptor(accounts, accountsgrpc.ProtectedMethods...),
	))
	accountsgrpc.RegisterAccountServiceServer(grpcServer, accountsgrpc.NewAccountServer(accounts, cfg.App.RevealUnknownResetEmail))
	healthpb.RegisterHealthServer(grpcServer, health.NewServer())
	return grpcServer
}

func startGRPCServer(cfg *config.Config, grpcServer *grpc.Server) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
	if err := grpcServer.Serve(lis); err != nil {
		logrus.WithError(err).Fatal("Failed to start gRPC server")
	}
}

func runPurgeLoop(ctx context.Context, accounts service.AccountService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := accounts.PurgeRevokedTokens(ctx)
			if err != nil {
				logrus.WithError(err).Error("Failed to purge revoked tokens")
				continue
			}
			logrus.WithField("purged", purged).Debug("Purged expired revoked tokens")
		}
	}
}
