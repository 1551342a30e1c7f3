package model

// Label is a bilingual (English / Kinyarwanda) piece of operator-facing copy.
type Label struct {
	Primary   string
	Secondary string
}

// ReasonID identifies an exception reason. Consumers filtering by reason
// must match on the id, never on position within a reason slice.
type ReasonID string

// Exception reason identifiers.
const (
	ReasonMissingReference ReasonID = "missing-reference"
	ReasonNeedsMember      ReasonID = "needs-member"
	ReasonDuplicate        ReasonID = "duplicate"
	ReasonManualReview     ReasonID = "manual-review"
	ReasonParserFailure    ReasonID = "parser-failure"
	ReasonMSISDNMismatch   ReasonID = "msisdn-mismatch"
	ReasonLowConfidence    ReasonID = "low-confidence"
)

// Tone hints at how prominently a reason should be displayed.
type Tone string

// Reason tones.
const (
	ToneWarning  Tone = "warning"
	ToneCritical Tone = "critical"
	ToneInfo     Tone = "info"
)

// Reason describes why a payment needs operator attention. Reasons are
// derived at read time from the payment and its siblings, never persisted.
type Reason struct {
	ID       ReasonID
	Label    Label
	Guidance Label
	Tone     Tone
}

// The canonical reason catalog. Declaration order here is the order the
// classifier emits reasons in.
var (
	MissingReference = Reason{
		ID:    ReasonMissingReference,
		Label: Label{Primary: "Missing reference", Secondary: "Indango ibura"},
		Guidance: Label{
			Primary:   "Add a SACCO.IKIMINA(.MEMBER) reference before posting.",
			Secondary: "Shyiraho indango SACCO.IKIMINA(.MEMBER) mbere yo kubyemeza.",
		},
		Tone: ToneWarning,
	}
	NeedsMember = Reason{
		ID:    ReasonNeedsMember,
		Label: Label{Primary: "Member not matched", Secondary: "Umunyamuryango ntabonekanye"},
		Guidance: Label{
			Primary:   "Link to a member to clear unallocated funds.",
			Secondary: "Huza n'umunyamuryango kugirango ukureho amafaranga ataraboneka.",
		},
		Tone: ToneCritical,
	}
	Duplicate = Reason{
		ID:    ReasonDuplicate,
		Label: Label{Primary: "Duplicate txn", Secondary: "Ubutumwa bwisubiyemo"},
		Guidance: Label{
			Primary:   "Compare with existing transactions sharing this reference.",
			Secondary: "Gereranya n'ubundi butumwa bufite iyi ndango.",
		},
		Tone: ToneWarning,
	}
	ManualReview = Reason{
		ID:    ReasonManualReview,
		Label: Label{Primary: "Manual review", Secondary: "Gusuzumwa n'intoki"},
		Guidance: Label{
			Primary:   "Review supporting documents before updating status.",
			Secondary: "Suzuma ibimenyetso mbere yo guhindura imiterere.",
		},
		Tone: ToneInfo,
	}
	ParserFailure = Reason{
		ID:    ReasonParserFailure,
		Label: Label{Primary: "Parser missing fields", Secondary: "Ibyatanzwe ntibyuzuye"},
		Guidance: Label{
			Primary:   "Fix the SMS format and retry the parser or assign manually.",
			Secondary: "Hindura imiterere ya SMS wongere ubishakishe cyangwa ubihuze intoki.",
		},
		Tone: ToneWarning,
	}
	MSISDNMismatch = Reason{
		ID:    ReasonMSISDNMismatch,
		Label: Label{Primary: "Masked MSISDN", Secondary: "Numero yihishwe"},
		Guidance: Label{
			Primary:   "Capture the sender MSISDN from statements for future auto-matching.",
			Secondary: "Andika nimero ya telefoni ku nyandiko kugirango bizafashe guhuza ku buryo bwikora.",
		},
		Tone: ToneWarning,
	}
	LowConfidence = Reason{
		ID:    ReasonLowConfidence,
		Label: Label{Primary: "Low confidence", Secondary: "Icyizere gito"},
		Guidance: Label{
			Primary:   "Double-check amount and reference before marking posted.",
			Secondary: "Ongera wemeze amafaranga n'indango mbere yo kubyemeza.",
		},
		Tone: ToneWarning,
	}
)

// AllReasons lists every reason in classifier rule order.
var AllReasons = []Reason{
	MissingReference,
	NeedsMember,
	Duplicate,
	ManualReview,
	ParserFailure,
	MSISDNMismatch,
	LowConfidence,
}

// ReasonByID looks up a reason from the catalog.
func ReasonByID(id ReasonID) (Reason, bool) {
	for _, reason := range AllReasons {
		if reason.ID == id {
			return reason, true
		}
	}
	return Reason{}, false
}
