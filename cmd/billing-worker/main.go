package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-scheduling/internal/billing"
	"github.com/clinicore/clinic-scheduling/internal/config"
)

// The billing worker drains the completed-appointment queue and records the
// charge intent for each visit. Scheduling never waits on this process.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stdout).With().Str("service", "billing-worker").Logger()
	log.Info().Msg("billing-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the billing worker")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connection error")
	}
	defer conn.Close()
	log.Info().Str("queue", cfg.BillingQueue).Msg("connected to RabbitMQ")

	ch, deliveries, err := billing.Consume(conn, cfg.BillingQueue, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("billing queue consume error")
	}
	defer ch.Close()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping billing worker")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn().Msg("billing queue channel closed")
				return
			}
			handleDelivery(d)
		}
	}
}

func handleDelivery(d amqp.Delivery) {
	var ev billing.CompletedEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.Error().Err(err).Msg("malformed billing event, dropping")
		_ = d.Reject(false)
		return
	}

	// Charge generation lives in the billing system proper; this worker
	// records the intent and acknowledges.
	log.Info().
		Str("appointment_id", ev.AppointmentID.String()).
		Str("practitioner_id", ev.PractitionerID.String()).
		Str("patient_id", ev.PatientID.String()).
		Str("date", ev.Date).
		Time("completed_at", ev.CompletedAt).
		Msg("charge intent recorded")

	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Msg("failed to ack billing event")
	}
}
