package scoring

import (
	"testing"

	"github.com/abaplay/outreach/internal/domain"
)

func TestValidEmailSyntax(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"contato@clinica.com.br", true},
		{"secretaria.flaviana@gmail.com", true},
		{"diretoria+aba@clinica.co", true},
		{"", false},
		{"semarroba.com", false},
		{"a@b", false},
		{"@clinica.com", false},
	}
	for _, tt := range tests {
		if got := ValidEmailSyntax(tt.email); got != tt.want {
			t.Errorf("ValidEmailSyntax(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		lead        domain.Lead
		wantScore   int
		wantDiscard bool
	}{
		{
			name: "full marks capped at 100",
			lead: domain.Lead{
				Email:       "flaviana@clinica.com.br",
				EmailType:   domain.EmailTypeNominal,
				Confidence:  domain.ConfidenceAlta,
				ContactName: "Dra. Flaviana",
				Website:     "https://clinica.com.br",
			},
			wantScore: 100,
		},
		{
			name: "role inbox medium confidence",
			lead: domain.Lead{
				Email:      "diretoria@clinica.com.br",
				EmailType:  domain.EmailTypeCargo,
				Confidence: domain.ConfidenceMedia,
			},
			wantScore: 65,
		},
		{
			name: "generic inbox low confidence",
			lead: domain.Lead{
				Email:      "contato@clinica.com.br",
				EmailType:  domain.EmailTypeGenerico,
				Confidence: domain.ConfidenceBaixa,
			},
			wantScore: 45,
		},
		{
			name:        "no email is discarded",
			lead:        domain.Lead{ClinicName: "Clínica X"},
			wantScore:   0,
			wantDiscard: true,
		},
		{
			name:        "malformed email is discarded",
			lead:        domain.Lead{Email: "whatsapp: 11 99999-9999"},
			wantScore:   0,
			wantDiscard: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.lead)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Discard != tt.wantDiscard {
				t.Errorf("Discard = %v, want %v", got.Discard, tt.wantDiscard)
			}
			if got.Score < 0 || got.Score > 100 {
				t.Errorf("score %d outside [0,100]", got.Score)
			}
		})
	}
}
