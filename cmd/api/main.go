// @title        Fotara API
// @version      1.0
// @description  Envío de facturas al sistema JoFotara (Jordania).
// @BasePath     /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/fotara-api/docs"
	"github.com/jhoicas/fotara-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/fotara-api/internal/interfaces/http"
	"github.com/jhoicas/fotara-api/pkg/config"
	"github.com/jhoicas/fotara-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("queue", cfg.Fotara.Queue).
		Int("workers", cfg.Fotara.Workers).
		Msg("iniciando aplicación")

	ctx := context.Background()
	svc, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}

	// Workers de la fase asíncrona; workerCtx se cancela en el apagado.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	svc.Consumer.Start(workerCtx, svc.Orchestrator.Process)

	// Facturas que quedaron en Queued por un reinicio; luego barrido periódico.
	if n, err := svc.Orchestrator.RequeueStale(ctx, time.Now().Add(-cfg.Fotara.StaleAfter)); err != nil {
		log.Error().Err(err).Msg("reencolar envíos pendientes")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("envíos pendientes reencolados")
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		svc.Orchestrator.SweepStale(sweepCtx, cfg.Fotara.SweepInterval, cfg.Fotara.StaleAfter)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Fotara API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := svc.Pool.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "db": err.Error()})
		}
		if svc.Redis != nil {
			if err := svc.Redis.Ping(pingCtx).Err(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "redis": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator:     svc.Orchestrator,
		Receipt:          svc.Receipt,
		JWTSecret:        cfg.JWT.Secret,
		JWTIssuer:        cfg.JWT.Issuer,
		SubmitRatePerMin: cfg.Fotara.SubmitRatePerMin,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Orden: sin barrido ni HTTP ya nadie encola; Drain procesa lo que queda en la cola
	// en memoria y recién después se cancelan los consumidores (Redis conserva su lista).
	stopSweep()
	<-sweepDone
	svc.Drain()
	stopWorkers()
	svc.Close()

	log.Info().Msg("aplicación detenida")
}
