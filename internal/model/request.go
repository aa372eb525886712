package model

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects which kind of document the engine checks.
type Mode string

const (
	ModeEPUB         Mode = "epub" // full package, engine default
	ModeExpanded     Mode = "exp"
	ModeOPF          Mode = "opf"
	ModeXHTML        Mode = "xhtml"
	ModeNav          Mode = "nav"
	ModeSVG          Mode = "svg"
	ModeMediaOverlay Mode = "mo"
)

// Profile selects the validation profile.
type Profile string

const (
	ProfileDefault Profile = "default"
	ProfileEDUPUB  Profile = "edupub"
	ProfileIndex   Profile = "idx"
	ProfileDict    Profile = "dict"
	ProfilePreview Profile = "preview"
)

var (
	Modes          = []Mode{ModeEPUB, ModeExpanded, ModeOPF, ModeXHTML, ModeNav, ModeSVG, ModeMediaOverlay}
	Profiles       = []Profile{ProfileDefault, ProfileEDUPUB, ProfileIndex, ProfileDict, ProfilePreview}
	TargetVersions = []string{"2.0", "3.0"}
)

// Request is a single validation request. The zero values of Mode and Profile
// mean the engine defaults.
type Request struct {
	Path          string
	Mode          Mode
	Profile       Profile
	TargetVersion string // only meaningful when Mode is not ModeEPUB
}

// Normalized returns a copy with empty Mode and Profile replaced by defaults.
func (r Request) Normalized() Request {
	if r.Mode == "" {
		r.Mode = ModeEPUB
	}
	if r.Profile == "" {
		r.Profile = ProfileDefault
	}
	r.TargetVersion = strings.TrimSpace(r.TargetVersion)
	return r
}

// Validate reports whether the request can be turned into an engine invocation.
func (r Request) Validate() error {
	n := r.Normalized()
	if strings.TrimSpace(n.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	if !slices.Contains(Modes, n.Mode) {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, n.Mode)
	}
	if !slices.Contains(Profiles, n.Profile) {
		return fmt.Errorf("%w: unknown profile %q", ErrInvalidRequest, n.Profile)
	}
	if n.TargetVersion != "" && !slices.Contains(TargetVersions, n.TargetVersion) {
		return fmt.Errorf("%w: unknown target version %q", ErrInvalidRequest, n.TargetVersion)
	}
	return nil
}
