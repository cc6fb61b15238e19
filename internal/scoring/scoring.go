// Package scoring ranks leads 0-100 for send prioritization. The weights
// replicate the tool's historical rules: a valid address is the entry
// ticket, and the rest rewards contact-data quality. The LLM scoring
// collaborator may later overwrite the score through the store; this is the
// deterministic baseline.
package scoring

import (
	"regexp"

	"github.com/abaplay/outreach/internal/domain"
)

// Weights for each scoring criterion.
const (
	WeightEmailExists   = 30
	WeightDecisionMaker = 10
	WeightHasWebsite    = 10
)

// emailTypeWeights rewards how targeted the address is: a person's own
// inbox beats a role inbox beats a catch-all.
var emailTypeWeights = map[string]int{
	domain.EmailTypeNominal:  25,
	domain.EmailTypeCargo:    20,
	domain.EmailTypeGenerico: 10,
	domain.EmailTypeFormOnly: 0,
}

var confidenceWeights = map[domain.Confidence]int{
	domain.ConfidenceAlta:  25,
	domain.ConfidenceMedia: 15,
	domain.ConfidenceBaixa: 5,
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmailSyntax reports whether the address has a plausible shape.
func ValidEmailSyntax(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}

// Result carries the computed score and, when the lead cannot be worked, a
// discard reason.
type Result struct {
	Score         int
	Discard       bool
	DiscardReason string
}

// Score computes the baseline 0-100 score for a lead. A lead without a
// syntactically valid address scores zero and is discarded.
func Score(lead *domain.Lead) Result {
	if !ValidEmailSyntax(lead.Email) {
		return Result{Score: 0, Discard: true, DiscardReason: "sem email válido"}
	}

	score := WeightEmailExists
	score += emailTypeWeights[lead.EmailType]
	score += confidenceWeights[lead.Confidence]
	if lead.ContactName != "" {
		score += WeightDecisionMaker
	}
	if lead.Website != "" {
		score += WeightHasWebsite
	}
	if score > 100 {
		score = 100
	}
	return Result{Score: score}
}
