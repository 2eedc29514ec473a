package models

import "testing"

func TestAIResponderConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AIResponderConfig
		wantErr bool
	}{
		{"defaults", AIResponderConfig{Strategy: StrategyModerate, ResponseDelayMinutes: 30}, false},
		{"zero delay", AIResponderConfig{Strategy: StrategyConservative, ResponseDelayMinutes: 0}, false},
		{"max delay", AIResponderConfig{Strategy: StrategyAggressive, ResponseDelayMinutes: MaxResponseDelayMinutes}, false},
		{"negative delay", AIResponderConfig{Strategy: StrategyModerate, ResponseDelayMinutes: -1}, true},
		{"delay over cap", AIResponderConfig{Strategy: StrategyModerate, ResponseDelayMinutes: MaxResponseDelayMinutes + 1}, true},
		{"unknown strategy", AIResponderConfig{Strategy: "yolo", ResponseDelayMinutes: 30}, true},
		{"empty strategy", AIResponderConfig{ResponseDelayMinutes: 30}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
