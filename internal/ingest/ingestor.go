package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

// Message is one raw SMS handed to the ingestor.
type Message struct {
	ReceivedAt time.Time
	Text       string
	MSISDN     string
}

// Result summarizes one ingest run.
type Result struct {
	Received      int
	Parsed        int
	ParseFailures int
}

// Ingestor persists inbound SMS and mints an UNALLOCATED payment per
// message. Unparseable messages still get a source record and a payment so
// the money is never silently lost; the classifier flags them.
type Ingestor struct {
	inbox    service.InboxStore
	payments service.PaymentStore
	saccoID  string
}

// NewIngestor creates an SMS ingestor for one tenant.
func NewIngestor(inbox service.InboxStore, payments service.PaymentStore, saccoID string) *Ingestor {
	return &Ingestor{
		inbox:    inbox,
		payments: payments,
		saccoID:  saccoID,
	}
}

// Ingest stores the given messages. progress, if non-nil, is called after
// each message with the running count.
func (i *Ingestor) Ingest(ctx context.Context, messages []Message, progress func(done int)) (Result, error) {
	var result Result

	for n, msg := range messages {
		record := NewSourceRecord(uuid.New().String(), msg.Text, msg.MSISDN, msg.ReceivedAt)
		if err := i.inbox.SaveSourceRecord(ctx, record); err != nil {
			return result, fmt.Errorf("failed to save source record: %w", err)
		}

		payment := i.paymentFrom(record, msg)
		if err := i.payments.SavePayments(ctx, []model.Payment{payment}); err != nil {
			return result, fmt.Errorf("failed to save payment for source %s: %w", record.ID, err)
		}

		result.Received++
		if record.Parsed != nil {
			result.Parsed++
		} else {
			result.ParseFailures++
			slog.Warn("SMS could not be parsed, recorded for manual review",
				"source_id", record.ID,
				"msisdn", msg.MSISDN)
		}

		if progress != nil {
			progress(n + 1)
		}
	}

	slog.Info("Ingest complete",
		"received", result.Received,
		"parsed", result.Parsed,
		"parse_failures", result.ParseFailures)
	return result, nil
}

func (i *Ingestor) paymentFrom(record *model.SourceRecord, msg Message) model.Payment {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	payment := model.Payment{
		ID:         uuid.New().String(),
		SaccoID:    i.saccoID,
		SourceID:   record.ID,
		Status:     model.StatusUnallocated,
		Currency:   "RWF",
		MSISDN:     record.MSISDN,
		Reference:  ParseReference(msg.Text),
		OccurredAt: msg.ReceivedAt,
	}

	if record.Parsed != nil {
		payment.Amount = record.Parsed.Amount
		payment.Currency = record.Parsed.Currency
		payment.TxnID = record.Parsed.TxnID
		if payment.MSISDN == "" {
			payment.MSISDN = record.Parsed.MSISDN
		}
	}

	return payment
}
