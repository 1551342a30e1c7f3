// Package ingest turns raw MoMo notification SMS into source records and
// unallocated payments.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kbyiringiro/saccoflow/internal/model"
)

// Notification text patterns across MTN MoMo and Airtel Money Rwanda. The
// providers reword their templates occasionally, so each field is matched
// independently; a message only fails to parse when the amount is missing.
var (
	amountPattern = regexp.MustCompile(`(?i)received\s+(?:RWF\s*)?([\d,]+(?:\.\d+)?)\s*(?:RWF)?`)
	txnIDPattern  = regexp.MustCompile(`(?i)(?:financial transaction id|transaction id|txid|tid)\s*[:#]?\s*([A-Za-z0-9-]+)`)
	senderPattern = regexp.MustCompile(`(?i)from\s+(?:\+?\d[\d\s]*,\s*)?([A-Za-z][A-Za-z .'-]*?)(?:\s*\(|,|\.\s|$)`)
	msisdnPattern = regexp.MustCompile(`(\+?250[\d✱*]{7,9}|\*{2,}\d{2,})`)
	refPattern    = regexp.MustCompile(`(?i)(?:message|ref(?:erence)?)\s*[:#]?\s*([A-Z0-9]+(?:\.[A-Z0-9]+)+)`)
)

// Provider detection keywords.
var providerKeywords = []struct {
	keyword  string
	provider string
}{
	{"mobile money", "MTN"},
	{"momo", "MTN"},
	{"airtel", "AIRTEL"},
}

// ParseSMS extracts the structured payload from one notification body.
// Returns nil when the message cannot be read as a money-received
// notification; that nil is preserved on the source record and surfaced to
// operators as a parser failure, never dropped.
func ParseSMS(raw string) *model.ParsedSMS {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	amountMatch := amountPattern.FindStringSubmatch(text)
	if amountMatch == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(amountMatch[1], ",", ""), 64)
	if err != nil || amount <= 0 {
		return nil
	}

	parsed := &model.ParsedSMS{
		Amount:   amount,
		Currency: "RWF",
		Provider: detectProvider(text),
	}

	if m := txnIDPattern.FindStringSubmatch(text); m != nil {
		parsed.TxnID = m[1]
	}
	if m := senderPattern.FindStringSubmatch(text); m != nil {
		parsed.Sender = strings.TrimSpace(m[1])
	}
	if m := msisdnPattern.FindStringSubmatch(text); m != nil {
		parsed.MSISDN = strings.TrimSpace(m[1])
	}

	return parsed
}

// ParseReference pulls the dot-delimited routing code out of a notification
// body, if the payer included one.
func ParseReference(raw string) string {
	if m := refPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

func detectProvider(text string) string {
	lower := strings.ToLower(text)
	for _, pk := range providerKeywords {
		if strings.Contains(lower, pk.keyword) {
			return pk.provider
		}
	}
	return ""
}

// NewSourceRecord wraps one raw message, parsed or not.
func NewSourceRecord(id, raw, msisdn string, receivedAt time.Time) *model.SourceRecord {
	record := &model.SourceRecord{
		ID:         id,
		RawText:    raw,
		MSISDN:     msisdn,
		ReceivedAt: receivedAt,
		Parsed:     ParseSMS(raw),
	}
	if record.Parsed != nil && record.MSISDN == "" {
		record.MSISDN = record.Parsed.MSISDN
	}
	return record
}
