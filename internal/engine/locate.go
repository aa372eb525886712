package engine

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// EnvPath overrides every other location of the engine.
const EnvPath = "EPUBCHECK_PATH"

// Executable is a resolved engine. A jar is started by the java runtime,
// anything else is executed directly.
type Executable struct {
	Path string
	Java string // used only for a jar, "java" when empty
}

// Dir is the working directory of the engine process, epubcheck resolves
// its lib/ directory relative to the jar.
func (e Executable) Dir() string {
	return filepath.Dir(e.Path)
}

func (e Executable) IsJar() bool {
	return strings.EqualFold(filepath.Ext(e.Path), ".jar")
}

// Command returns the program and full argument vector for args.
func (e Executable) Command(args []string) (string, []string) {
	if !e.IsJar() {
		return e.Path, append([]string(nil), args...)
	}
	java := e.Java
	if java == "" {
		java = "java"
	}
	return java, append([]string{"-jar", e.Path}, args...)
}

// Locator searches the engine in an ordered list of locations.
type Locator struct {
	Override   string   // value of EPUBCHECK_PATH
	Configured string   // engine.path from the config file
	Candidates []string // fixed install locations
	Java       string
}

// NewLocator returns a Locator reading the environment, the location of the
// running program and the working directory.
func NewLocator(configured, java string) Locator {
	var exeDir string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeDir = filepath.Dir(exe)
	}
	cwd, _ := os.Getwd()

	if java == "" {
		if home, ok := os.LookupEnv("JAVA_HOME"); ok && home != "" {
			candidate := filepath.Join(home, "bin", "java")
			if isRegular(candidate) {
				java = candidate
			}
		}
	}

	return Locator{
		Override:   os.Getenv(EnvPath),
		Configured: configured,
		Candidates: DefaultCandidates(exeDir, cwd),
		Java:       java,
	}
}

// DefaultCandidates returns the fixed install locations relative to
// the program directory and the working directory.
func DefaultCandidates(exeDir, cwd string) []string {
	var ret []string
	if exeDir != "" {
		ret = append(ret,
			filepath.Join(exeDir, "epubcheck", "epubcheck.jar"),
			filepath.Join(exeDir, "..", "epubcheck", "epubcheck.jar"),
			filepath.Join(exeDir, "epubcheck"),
		)
	}
	if cwd != "" {
		ret = append(ret,
			filepath.Join(cwd, "epubcheck", "epubcheck.jar"),
			filepath.Join(cwd, "epubcheck.jar"),
		)
	}
	return ret
}

// Paths returns the locations in the order they are searched.
func (l Locator) Paths() []string {
	all := append([]string{l.Override, l.Configured}, l.Candidates...)
	ret := make([]string, 0, len(all))
	for _, p := range all {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if slices.Contains(ret, p) {
			continue
		}
		ret = append(ret, p)
	}
	return ret
}

// Resolve returns the first existing location. The error lists every
// location tried.
func (l Locator) Resolve() (Executable, error) {
	paths := l.Paths()
	for _, p := range paths {
		if isRegular(p) {
			abs, err := filepath.Abs(p)
			if err != nil {
				abs = p
			}
			return Executable{Path: abs, Java: l.Java}, nil
		}
	}
	diag := "no location configured"
	if len(paths) > 0 {
		diag = "tried " + strings.Join(paths, ", ")
	}
	return Executable{}, &InvocationError{
		Reason:     ReasonExecutableNotFound,
		Diagnostic: diag + "; set " + EnvPath + " to the epubcheck jar",
	}
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
