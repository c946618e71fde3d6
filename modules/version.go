package modules

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
)

// Application info - centralized
const (
	AppName        = "panetree"
	AppVersion     = "0.1.0"
	AppDescription = "Live directory tree in a tmux side pane"
)

// buildHash is computed once at runtime from the binary's properties
var (
	buildHash     string
	buildHashOnce sync.Once
)

// BuildHash returns the build hash (computed from binary at runtime)
// Format: YYMMDD-xxxxxxxx (mod date + 8-char hash of binary)
func BuildHash() string {
	buildHashOnce.Do(computeBuildHash)
	return buildHash
}

func computeBuildHash() {
	buildHash = hashExecutable()
}

func hashExecutable() string {
	executable, err := os.Executable()
	if err != nil {
		return "000000-unknown0"
	}
	return hashFile(executable)
}

// hashFile returns the YYMMDD-xxxxxxxx hash of path
func hashFile(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "000000-unknown1"
	}
	datePart := info.ModTime().Format("060102")

	f, err := os.Open(path)
	if err != nil {
		return datePart + "-unknown2"
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return datePart + "-unknown3"
	}
	return datePart + "-" + fmt.Sprintf("%x", h.Sum(nil))[:8]
}

// VersionString returns the one-line version report
func VersionString() string {
	return fmt.Sprintf("%s %s (build %s)", AppName, AppVersion, BuildHash())
}
