package sessions

import "testing"

func TestRecommendation(t *testing.T) {
	tests := []struct {
		name       string
		approvals  int
		rejections int
		want       string
	}{
		{"no completed reviews", 0, 0, "pending"},
		{"majority approve", 3, 1, "approve"},
		{"majority reject", 1, 2, "reject"},
		{"tie", 2, 2, "split"},
		{"single approval", 1, 0, "approve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Recommendation(tt.approvals, tt.rejections); got != tt.want {
				t.Fatalf("Recommendation(%d, %d) = %q, want %q", tt.approvals, tt.rejections, got, tt.want)
			}
		})
	}
}
