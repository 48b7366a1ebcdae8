package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quill-sign/signing-portal/signing-portal-backend/internal/config"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
	"quill-sign/signing-portal/signing-portal-backend/internal/notifications"
)

// ReminderWorker re-emails recipients who have not signed documents left
// pending past the configured threshold.
type ReminderWorker struct {
	repo          documents.Repository
	notifier      documents.Notifier
	logger        *zap.Logger
	reminderAfter time.Duration
}

func NewReminderWorker(repo documents.Repository, notifier documents.Notifier, logger *zap.Logger, reminderAfter time.Duration) *ReminderWorker {
	return &ReminderWorker{
		repo:          repo,
		notifier:      notifier,
		logger:        logger,
		reminderAfter: reminderAfter,
	}
}

// Run performs one reminder sweep. Email failures are logged and skipped;
// the sweep never aborts because one recipient bounced.
func (w *ReminderWorker) Run(ctx context.Context) {
	cutoff := time.Now().Add(-w.reminderAfter)

	docs, err := w.repo.ListPendingDocumentsBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to list pending documents", zap.Error(err))
		return
	}

	reminded := 0
	for i := range docs {
		doc := &docs[i]

		recipients, err := w.repo.ListRecipients(ctx, doc.ID)
		if err != nil {
			w.logger.Warn("failed to list recipients", zap.String("document_id", doc.ID.String()), zap.Error(err))
			continue
		}

		for j := range recipients {
			recipient := &recipients[j]
			if recipient.SigningStatus == documents.SigningStatusSigned {
				continue
			}
			if err := w.notifier.SendSigningReminder(ctx, doc, recipient); err != nil {
				w.logger.Warn("failed to send reminder",
					zap.String("document_id", doc.ID.String()),
					zap.String("recipient_email", recipient.Email),
					zap.Error(err))
				continue
			}
			reminded++
		}
	}

	w.logger.Info("reminder sweep finished",
		zap.Int("pending_documents", len(docs)),
		zap.Int("reminders_sent", reminded))
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	ctx := context.Background()
	emailChannel, err := notifications.NewSESChannel(ctx, cfg.Email.FromAddress)
	if err != nil {
		logger.Fatal("Failed to initialize SES channel", zap.Error(err))
	}
	notifier, err := notifications.NewService(gormDB, emailChannel, cfg.App.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}

	worker := NewReminderWorker(documents.NewRepository(db), notifier, logger, cfg.App.ReminderAfter)

	schedule := os.Getenv("REMINDER_SCHEDULE")
	if schedule == "" {
		schedule = "@hourly"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		worker.Run(runCtx)
	}); err != nil {
		logger.Fatal("Invalid reminder schedule", zap.String("schedule", schedule), zap.Error(err))
	}
	c.Start()

	logger.Info("Reminder worker started", zap.String("schedule", schedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down reminder worker...")
	<-c.Stop().Done()
}
