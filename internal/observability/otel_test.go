package observability

import (
	"strings"
	"testing"
)

func TestTracerConfig_Sampler(t *testing.T) {
	cases := []struct {
		cfg  TracerConfig
		want string
	}{
		{TracerConfig{Env: "dev"}, "TraceIDRatioBased{1}"},
		{TracerConfig{Env: "prod"}, "TraceIDRatioBased{0.1}"},
		{TracerConfig{Env: "prod", SampleRatio: 0.5}, "TraceIDRatioBased{0.5}"},
	}

	for _, tc := range cases {
		got := tc.cfg.sampler().Description()
		if !strings.HasPrefix(got, "ParentBased{") || !strings.Contains(got, tc.want) {
			t.Fatalf("%+v: got %q, want it to contain %q", tc.cfg, got, tc.want)
		}
	}
}
