package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Skotchmaster/research_repository/internal/config"
	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/mailer"
	"github.com/Skotchmaster/research_repository/internal/mykafka"
)

func main() {
	cfg, err := config.LoadMailerConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel).With("service", "mailer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := mykafka.NewConsumer(cfg.KafkaBrokers, cfg.MailTopic, cfg.MailGroupID)
	if err != nil {
		logger.Error("kafka_consumer_failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	sender := &mailer.SMTPSender{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}

	logger.Info("mailer_started", "topic", cfg.MailTopic, "group", cfg.MailGroupID)
	err = mykafka.Run(ctx, consumer, logger, func(ctx context.Context, m mailer.OTPMessage) error {
		if m.Type != mailer.TypeOTPRequested {
			return nil
		}
		if err := sender.SendOTP(ctx, m.Email, m.Code, m.ExpiresAt); err != nil {
			return err
		}
		logger.Info("otp_mail_sent", "email", m.Email)
		return nil
	})
	if err != nil {
		logger.Error("mailer_stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("mailer_shutdown")
}
