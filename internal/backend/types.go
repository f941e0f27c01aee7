package backend

// Review status values reported by the backend while an application is
// under manual review.
const (
	StatusInProgress = "inprogress"
	StatusApproved   = "approved"
	StatusDiscarded  = "discarded"
)

// Profile is the server-owned applicant record. The client treats it as a
// read-only snapshot; the backend is the sole source of truth.
type Profile struct {
	ChatID            int64  `json:"chat_id"`
	Username          string `json:"telegram_username"`
	Phone             string `json:"phone"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	PassportNumber    string `json:"passport_number"`
	SNILS             string `json:"snils"`
	CheckStatus       string `json:"checkstatus"`
	ContractConfirmed bool   `json:"contract_confirmed"`
	State             string `json:"state"`
}

// Status is the review-status slice of the profile, polled while waiting.
type Status struct {
	CheckStatus       string `json:"checkstatus"`
	ContractConfirmed bool   `json:"contract_confirmed"`
}

// SubmitResult reports an application submission. Message carries the
// server-supplied error text when Success is false.
type SubmitResult struct {
	Success bool
	Message string
}
