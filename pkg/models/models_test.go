package models_test

import (
	"testing"

	"github.com/botgrid/gateway/pkg/models"
)

func TestNormalizeBotType(t *testing.T) {
	cases := []struct {
		raw  string
		want models.BotType
	}{
		{"charlotte", models.BotTypeCharlotte},
		{"Charlotte", models.BotTypeCharlotte},
		{"CHARLOTTE", models.BotTypeCharlotte},
		{"robert", models.BotTypeRobert},
		{"ROBERT", models.BotTypeRobert},
		{"something-else", models.BotTypeRobert},
		{"", models.BotTypeRobert},
	}
	for _, tc := range cases {
		if got := models.NormalizeBotType(tc.raw); got != tc.want {
			t.Errorf("NormalizeBotType(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestBotBaseURL(t *testing.T) {
	bot := &models.Bot{Name: "acme", Host: "http://h", Port: 9}
	if got := bot.BaseURL(); got != "http://h:9" {
		t.Errorf("BaseURL() = %q, want %q", got, "http://h:9")
	}
}
