package borica

// Outcome is the post-verification classification of a callback.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDeclined  Outcome = "declined"
	OutcomeAmbiguous Outcome = "ambiguous"
)

const (
	ActionSuccess   = "0"
	ActionDuplicate = "1"
	ActionDeclined  = "2"
	ActionError     = "3"
	ActionSoftDecl  = "21"

	RCApproved = "00"
)

// Classify maps ACTION/RC to an outcome. Anything that is not an explicit
// approval is non-success; Ambiguous must be handled as a failure.
func Classify(resp *PaymentResponse) Outcome {
	switch {
	case resp.Action == ActionSuccess && resp.RC == RCApproved:
		return OutcomeSuccess
	case resp.Action == ActionDeclined:
		return OutcomeDeclined
	case resp.Action == ActionError && resp.RC != RCApproved:
		return OutcomeDeclined
	default:
		return OutcomeAmbiguous
	}
}

// Succeeded is true only for OutcomeSuccess.
func (o Outcome) Succeeded() bool { return o == OutcomeSuccess }
