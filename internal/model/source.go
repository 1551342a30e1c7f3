package model

import "time"

// ParsedSMS is the structured payload extracted from a MoMo notification.
// A SourceRecord with a nil ParsedSMS means the parser could not make sense
// of the message; that absence is a first-class state surfaced to operators
// as a parser-failure exception.
type ParsedSMS struct {
	Sender   string  `json:"sender"`
	MSISDN   string  `json:"msisdn"`
	TxnID    string  `json:"txn_id"`
	Provider string  `json:"provider"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// SourceRecord is a raw inbound SMS notification, parsed or not.
type SourceRecord struct {
	ReceivedAt time.Time
	Parsed     *ParsedSMS
	ID         string
	RawText    string
	MSISDN     string
}
