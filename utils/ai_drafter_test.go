package utils

import (
	"testing"

	"outreachcrm/models"
)

func TestParseDraftContent(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSubject string
		wantContent string
	}{
		{
			"plain json",
			`{"subject": "Following up", "content": "Happy to walk you through it."}`,
			"Following up",
			"Happy to walk you through it.",
		},
		{
			"fenced json",
			"```json\n{\"subject\": \"Following up\", \"content\": \"Sounds good.\"}\n```",
			"Following up",
			"Sounds good.",
		},
		{
			"plain text fallback",
			"Thanks for the reply! Does Thursday work?",
			"Re: your message",
			"Thanks for the reply! Does Thursday work?",
		},
		{
			"json missing content falls back",
			`{"subject": "Following up"}`,
			"Re: your message",
			`{"subject": "Following up"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDraftContent(tt.raw)
			if got.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", got.Subject, tt.wantSubject)
			}
			if got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
		})
	}
}

func TestStrategyTemperature(t *testing.T) {
	tests := []struct {
		strategy string
		want     float32
	}{
		{models.StrategyAggressive, 0.9},
		{models.StrategyModerate, 0.7},
		{models.StrategyConservative, 0.3},
		{"", 0.7},
	}
	for _, tt := range tests {
		if got := strategyTemperature(tt.strategy); got != tt.want {
			t.Errorf("strategyTemperature(%q) = %v, want %v", tt.strategy, got, tt.want)
		}
	}
}
