package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-fees/app/controller"
	feesgrpc "github.com/vibast-solutions/ms-go-fees/app/grpc"
	"github.com/vibast-solutions/ms-go-fees/app/types"
	"github.com/vibast-solutions/ms-go-fees/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the fees service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type httpControllers struct {
	health     *controller.HealthController
	fees       *controller.FeeController
	orders     *controller.OrderController
	refunds    *controller.RefundController
	organizers *controller.OrganizerController
	webhooks   *controller.WebhookController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.feeCache.Warm(warmCtx); err != nil {
		logrus.WithError(err).Warn("Fee config cache warm-up failed, loading on first use")
	}
	cancelWarm()

	controllers := &httpControllers{
		health:     controller.NewHealthController(),
		fees:       controller.NewFeeController(svc.fees),
		orders:     controller.NewOrderController(svc.orders),
		refunds:    controller.NewRefundController(svc.refunds),
		organizers: controller.NewOrganizerController(svc.organizers),
		webhooks:   controller.NewWebhookController(svc.webhooks),
	}
	grpcFeeServer := feesgrpc.NewServer(svc.fees)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(controllers, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, healthSrv, lis := setupGRPCServer(cfg, grpcFeeServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()
	svc.webhooks.Wait()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	controllers *httpControllers,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
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
			if v.RequestID != "" {
				fields["request_id"] = v.RequestID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", controllers.health.Health)

	// Providers authenticate with their payload signature and never send
	// internal credentials or request ids.
	e.POST("/webhooks/:provider", controllers.webhooks.Ingest, echomiddleware.RequestID())

	internal := []echo.MiddlewareFunc{
		requireRequestID(),
		internalAuthMiddleware.RequireInternalAccess(appServiceName),
	}

	feesGroup := e.Group("/fees", internal...)
	feesGroup.POST("/quote", controllers.fees.Quote)
	feesGroup.GET("/parameters", controllers.fees.Parameters)

	orders := e.Group("/orders", internal...)
	orders.POST("", controllers.orders.CreateOrder)
	orders.GET("/:id", controllers.orders.GetOrder)

	refunds := e.Group("/refunds", internal...)
	refunds.POST("", controllers.refunds.CreateRefund)
	refunds.GET("/:id", controllers.refunds.GetRefund)
	refunds.POST("/:id/decisions", controllers.refunds.Decide)

	organizers := e.Group("/organizers", internal...)
	organizers.GET("/:id", controllers.organizers.GetOrganizer)

	admin := e.Group("/admin", internal...)
	admin.POST("/organizers", controllers.organizers.RegisterOrganizer)
	admin.PUT("/fees/countries/:currency", controllers.fees.UpdateCountryField)
	admin.PUT("/fees/organizers/:id", controllers.fees.UpdateOrganizerField)
	admin.PUT("/organizers/:id/verification", controllers.organizers.SetVerificationStatus)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	feeServer *feesgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, *health.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			feesgrpc.RecoveryInterceptor(),
			feesgrpc.ExceptHealthChecks(feesgrpc.RequestIDInterceptor()),
			feesgrpc.LoggingInterceptor(),
			feesgrpc.ExceptHealthChecks(internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName)),
		),
	)
	feesgrpc.RegisterFeeServiceServer(grpcSrv, feeServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(feesgrpc.FeeServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return grpcSrv, healthSrv, lis
}
