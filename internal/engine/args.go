package engine

import (
	"os"
	"path/filepath"

	"github.com/analekt/epubcheck-mcp/internal/model"
	"github.com/google/uuid"
)

// ArtifactPath returns a fresh path for the JSON report inside scratchDir
// (os.TempDir when empty). A random UUID makes concurrent invocations
// never share a path.
func ArtifactPath(scratchDir string) string {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return filepath.Join(scratchDir, "epubcheck-"+uuid.NewString()+".json")
}

// BuildArgs returns the engine arguments for req. The order is significant:
//
//	--json <artifact> [--mode <mode>] [--profile <profile>] [-v <version>] <path>
//
// The target version is emitted only with a non default mode, the engine
// ignores it for full packages.
func BuildArgs(req model.Request, artifact string) []string {
	req = req.Normalized()
	args := make([]string, 0, 9)
	args = append(args, "--json", artifact)
	if req.Mode != model.ModeEPUB {
		args = append(args, "--mode", string(req.Mode))
	}
	if req.Profile != model.ProfileDefault {
		args = append(args, "--profile", string(req.Profile))
	}
	if req.TargetVersion != "" && req.Mode != model.ModeEPUB {
		args = append(args, "-v", req.TargetVersion)
	}
	return append(args, req.Path)
}
