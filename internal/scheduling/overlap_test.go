package scheduling

import "testing"

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"disjoint before", "09:00", "10:00", "11:00", "12:00", false},
		{"disjoint after", "13:00", "14:00", "09:00", "10:00", false},
		{"back to back", "09:00", "10:00", "10:00", "11:00", false},
		{"partial overlap", "09:30", "10:30", "10:00", "11:00", true},
		{"contained", "10:15", "10:45", "10:00", "11:00", true},
		{"containing", "09:00", "12:00", "10:00", "11:00", true},
		{"identical", "10:00", "11:00", "10:00", "11:00", true},
		{"one minute overlap", "09:59", "10:01", "10:00", "11:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Fatalf("Overlaps(%s-%s, %s-%s) = %v, want %v", tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}
			// symmetry
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Fatalf("Overlaps is not symmetric for %s", tt.name)
			}
		})
	}
}

func TestValidateTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{"valid", "09:00", "10:30", false},
		{"midnight edge", "00:00", "23:59", false},
		{"equal", "10:00", "10:00", true},
		{"reversed", "11:00", "10:00", true},
		{"bad format", "9:00", "10:00", true},
		{"out of range hour", "24:00", "25:00", true},
		{"garbage", "abc", "10:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimeRange(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTimeRange(%s, %s) err = %v, wantErr %v", tt.start, tt.end, err, tt.wantErr)
			}
		})
	}
}
