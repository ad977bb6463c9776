package domain

import "testing"

func TestNormalizeAppliesDefaults(t *testing.T) {
	opts := GenerationOptions{}.Normalize()
	if opts.AspectRatio != "16:9" {
		t.Fatalf("aspect ratio = %q", opts.AspectRatio)
	}
	if opts.Seconds != 5 {
		t.Fatalf("seconds = %d", opts.Seconds)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    GenerationOptions
		wantErr bool
	}{
		{"portrait", GenerationOptions{AspectRatio: "9:16", Seconds: 10}, false},
		{"with seed", GenerationOptions{AspectRatio: "1:1", Seconds: 5, Seed: 1}, false},
		{"max seed", GenerationOptions{AspectRatio: "1:1", Seconds: 5, Seed: SeedMax}, false},
		{"explore", GenerationOptions{AspectRatio: "21:9", Seconds: 5, ExploreMode: true}, false},
		{"bad ratio", GenerationOptions{AspectRatio: "2:1", Seconds: 5}, true},
		{"bad duration", GenerationOptions{AspectRatio: "16:9", Seconds: 7}, true},
		{"seed too small", GenerationOptions{AspectRatio: "16:9", Seconds: 5, Seed: -3}, true},
		{"seed too large", GenerationOptions{AspectRatio: "16:9", Seconds: 5, Seed: SeedMax + 1}, true},
	}
	for _, tc := range cases {
		err := tc.opts.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
	}
}

func TestCloneIsolatesMutableFields(t *testing.T) {
	task := Task{
		ImageData: []byte{1, 2},
		Logs:      []LogEntry{{Message: "a"}},
	}
	clone := task.Clone()
	clone.ImageData[0] = 9
	clone.Logs[0].Message = "b"
	if task.ImageData[0] != 1 || task.Logs[0].Message != "a" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatalf("non-terminal state reported terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("terminal state not reported terminal")
	}
}
