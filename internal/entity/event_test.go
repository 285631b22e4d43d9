package entity

import "testing"

func TestPriorityOrder(t *testing.T) {
	ordered := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

	for i, lower := range ordered {
		for j, higher := range ordered {
			got := higher.AtLeast(lower)
			want := j >= i
			if got != want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", higher, lower, got, want)
			}
		}
	}

	if Priority("urgent").IsValid() {
		t.Error("unknown priority reported valid")
	}
}

func TestNotificationTypeDefaults(t *testing.T) {
	tests := []struct {
		t    NotificationType
		want Priority
	}{
		{DeviceOffline, PriorityHigh},
		{DeviceOnline, PriorityLow},
		{DeviceDegraded, PriorityMedium},
		{SecurityAlert, PriorityCritical},
		{CartographerDown, PriorityCritical},
		{NotificationType("solar_flare"), PriorityMedium},
	}

	for _, tt := range tests {
		if got := tt.t.DefaultPriority(); got != tt.want {
			t.Errorf("%s default priority = %s, want %s", tt.t, got, tt.want)
		}
	}

	if !CartographerUp.IsGlobal() || !CartographerDown.IsGlobal() {
		t.Error("cartographer types must be global")
	}
	if DeviceOffline.IsGlobal() {
		t.Error("device_offline must not be global")
	}
	if NotificationType("solar_flare").IsValid() {
		t.Error("unknown type reported valid")
	}
	if len(AllNotificationTypes()) != 12 {
		t.Errorf("known types = %d, want 12", len(AllNotificationTypes()))
	}
}
