package models

import "testing"

func TestEmailEnabledFor(t *testing.T) {
	prefs := NotificationPreferences{
		EmailSessionUpdates:  true,
		EmailReviewUpdates:   false,
		EmailScheduleUpdates: true,
		EmailQuestions:       false,
		EmailBroadcasts:      true,
	}

	tests := []struct {
		notifType string
		want      bool
	}{
		{NotifySessionUpdate, true},
		{NotifyReviewUpdate, false},
		{NotifyScheduleUpdate, true},
		{NotifyQuestion, false},
		{NotifyBroadcast, true},
		{NotifySystem, false},
		{"unknown", false},
	}
	for _, tt := range tests {
		if got := prefs.EmailEnabledFor(tt.notifType); got != tt.want {
			t.Errorf("EmailEnabledFor(%q) = %v, want %v", tt.notifType, got, tt.want)
		}
	}
}
