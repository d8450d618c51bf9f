package options

import (
	"testing"

	"tableflip.dev/presetswitch/pkg/preset"
)

func TestPolicyOptions(t *testing.T) {
	tests := []struct {
		name    string
		in      PolicyOptions
		want    preset.Options
		wantErr bool
	}{
		{name: "unset", in: PolicyOptions{}},
		{name: "silent both", in: PolicyOptions{OnMissingNode: "silent", IndexOutOfRange: "silent"},
			want: preset.Options{OnMissingNode: preset.PolicySilent, IndexOutOfRange: preset.PolicySilent}},
		{name: "skip", in: PolicyOptions{OnMissingNode: "skip"}, want: preset.Options{OnMissingNode: preset.PolicySkip}},
		{name: "warn is not a missing node policy", in: PolicyOptions{OnMissingNode: "warn"}, wantErr: true},
		{name: "unknown range policy", in: PolicyOptions{IndexOutOfRange: "loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Options()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
