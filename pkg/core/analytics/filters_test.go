package analytics

import (
	"reflect"
	"testing"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

func TestToggleFilter(t *testing.T) {
	th := domain.Filter{Type: domain.FilterCountry, Value: "TH"}
	us := domain.Filter{Type: domain.FilterCountry, Value: "US"}
	mobile := domain.Filter{Type: domain.FilterDevice, Value: "Mobile"}
	desktop := domain.Filter{Type: domain.FilterDevice, Value: "Desktop"}

	tests := []struct {
		name   string
		active []domain.Filter
		toggle domain.Filter
		want   []domain.Filter
	}{
		{"add to empty", nil, th, []domain.Filter{th}},
		{"same filter removes", []domain.Filter{th, mobile}, th, []domain.Filter{mobile}},
		{"countries accumulate", []domain.Filter{th}, us, []domain.Filter{th, us}},
		{"device replaces device", []domain.Filter{th, mobile}, desktop, []domain.Filter{th, desktop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToggleFilter(tt.active, tt.toggle)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, ok := ParseFilter("City:Bangkok")
	if !ok || f.Type != domain.FilterCity || f.Value != "Bangkok" {
		t.Errorf("unexpected %v %v", f, ok)
	}
	f, ok = ParseFilter("referrer:https://t.co/abc")
	if !ok || f.Value != "https://t.co/abc" {
		t.Errorf("value with colon should survive, got %v", f)
	}
	for _, bad := range []string{"expiration:soon", "device:", "nocolon"} {
		if _, ok := ParseFilter(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
