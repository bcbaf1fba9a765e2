package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/application/inventory"
	"github.com/jhoicas/pdv-nfce/internal/application/sales"
	domfiscal "github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
	infrakafka "github.com/jhoicas/pdv-nfce/internal/infrastructure/kafka"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/pdv-nfce/internal/infrastructure/pdf"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/postgres"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/redisx"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/sefaz"
	httpRouter "github.com/jhoicas/pdv-nfce/internal/interfaces/http"
	"github.com/jhoicas/pdv-nfce/internal/interfaces/ws"
	"github.com/jhoicas/pdv-nfce/pkg/config"
	"github.com/jhoicas/pdv-nfce/pkg/logger"
)

// ledger puertos de persistencia según STORE_DRIVER.
type ledger struct {
	products  repository.ProductRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
	fiscal    repository.FiscalRepository
	close     func()
}

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
		Str("store", cfg.Store.Driver).
		Str("transmitter", cfg.NFCe.Transmitter).
		Str("ambiente", cfg.NFCe.Environment).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store := openLedger(ctx, cfg, log)
	defer store.close()

	// Eventos: websocket siempre, Kafka si hay brokers.
	hub := ws.NewHub(log.Component("ws"))
	go hub.Run(ctx)
	pubs := events.Multi{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := infrakafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, log.Component("kafka"))
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar productor kafka")
			}
		}()
		pubs = append(pubs, producer)
	}

	var idem sales.IdempotencyStore = memory.NewIdempotency()
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; se reintentará por petición")
		}
		idem = redisx.NewIdempotency(rdb, cfg.Redis.IdempotencyTTL, cfg.Redis.PendingSaleTTL)
	}

	var transmitter fiscal.Transmitter
	switch cfg.NFCe.Transmitter {
	case "soap":
		transmitter = sefaz.NewSOAPTransmitter(cfg.NFCe.SOAPURL, cfg.NFCe.SOAPEventURL, &http.Client{})
	default:
		transmitter = sefaz.NewMockTransmitter()
	}

	completeSaleUC := sales.NewCompleteSaleUseCase(store.sales, store.products, idem, pubs, log.Component("sales"))
	getSaleUC := sales.NewGetSaleUseCase(store.sales)
	stockUC := inventory.NewStockUseCase(store.products, store.movements)
	registerMovementUC := inventory.NewRegisterMovementUseCase(store.products, store.movements, pubs, log.Component("inventory"))
	nfceUC := fiscal.NewNFCeUseCase(
		store.fiscal, store.sales, store.products,
		sefaz.NewXMLBuilder(cfg.NFCe.QRCodeURL, ""),
		transmitter,
		infrapdf.NewDANFERenderer(),
		pubs,
		log.Component("fiscal"),
		fiscal.Options{
			Tax: domfiscal.TaxRules{
				ICMSRate: cfg.NFCe.ICMSRate,
				NCM:      cfg.NFCe.NCM,
				CFOP:     cfg.NFCe.CFOP,
				CST:      cfg.NFCe.CST,
			},
			Environment:     cfg.NFCe.Environment,
			TransmitTimeout: cfg.NFCe.TransmitTimeout,
			MaxAttempts:     cfg.NFCe.MaxAttempts,
			InitialBackoff:  cfg.NFCe.InitialBackoff,
		},
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // transmit con reintentos
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "PDV NFC-e API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompleteSale:     completeSaleUC,
		GetSale:          getSaleUC,
		Stock:            stockUC,
		RegisterMovement: registerMovementUC,
		NFCe:             nfceUC,
		Hub:              hub,
		JWTSecret:        cfg.JWT.Secret,
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
	stop()

	log.Info().Msg("aplicación detenida")
}

func openLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) ledger {
	if cfg.Store.Driver == "memory" {
		st := memory.New()
		seedDemo(st, cfg.NFCe.Environment)
		log.Warn().Str("business_id", demoBusinessID).Msg("ledger en memoria: los datos se pierden al reiniciar")
		return ledger{products: st, sales: st.Sales(), movements: st, fiscal: st.Fiscal(), close: func() {}}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	l := postgres.NewLedger(pool)
	return ledger{
		products:  postgres.NewProductRepository(pool),
		sales:     postgres.NewSaleRepository(l),
		movements: postgres.NewStockMovementRepository(l),
		fiscal:    postgres.NewFiscalRepository(l),
		close:     pool.Close,
	}
}
