package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/store"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no region", nav.ErrNoRegion, "You must connect to a region first (see chregion)"},
		{"no container", fmt.Errorf("chprefix: %w", nav.ErrNoContainer), "You must be in a container first (see chcontainer)"},
		{"shell error", failf(store.ErrNoSuchContainer, "Container %s does not exist.", "x"), "Container x does not exist."},
		{"auth", &store.Error{Op: "Connect", Backend: "s3", Err: store.ErrAuthenticationFailed}, "Authentication failed. Check your username and API key."},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.err); got != tt.want {
				t.Errorf("describe(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestObjectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"container", store.ErrNoSuchContainer, "Container photos does not exist."},
		{"object", store.ErrNoSuchObject, "Object /photos/a.jpg does not exist."},
		{"sub-directory", store.ErrObjectIsSubDirectory, "Object /photos/a.jpg is a sub-directory."},
		{"archived", store.ErrObjectArchived, "Object /photos/a.jpg is archived and must be restored before it can be read."},
		{"passthrough", errors.New("boom"), "wrapped: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := objectError(fmt.Errorf("wrapped: %w", tt.err), "photos", "/photos/a.jpg")
			if got := describe(err); got != tt.want {
				t.Errorf("describe(objectError(%v)) = %q, want %q", tt.err, got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("objectError(%v) does not wrap the cause", tt.err)
			}
		})
	}
}
