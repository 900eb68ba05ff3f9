package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/handlers"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reference library web server",
	Long:  `Start the web server for browsing, editing and auditing wiring references.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port to run the server on")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New("serve")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	checklist, err := standards.Load(cfg.StandardsFile)
	if err != nil {
		return err
	}

	auditor, err := newAuditClient(ctx, cfg)
	if err != nil {
		return err
	}
	if auditor == nil {
		log.Warn("GEMINI_API_KEY is not set, audits are disabled")
	}

	// Initialize the collection before taking traffic
	res, err := refs.Load(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"count": len(res.References), "source": res.Source.String()}).Info("References loaded")

	app := fiber.New(fiber.Config{
		AppName:   "Panel Reference Library",
		BodyLimit: 8 << 20,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: logging.Logger().Writer()}))

	handlers.Register(app, handlers.Deps{
		References: refs,
		Auditor:    auditor,
		Standards:  checklist,
		Storage:    handlers.StorageInfo{Driver: cfg.StorageDriver, Key: cfg.StorageKey},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting server on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
