package rules

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Hardcoded returns the built-in safety rules that are always enforced
// regardless of configuration. They block permanently catastrophic
// operations.
func Hardcoded() []CheckFunc {
	return []CheckFunc{
		checkRmCatastrophic,
	}
}

// checkRmCatastrophic blocks recursive removal of root, home, or current directory.
func checkRmCatastrophic(argv []string) error {
	if program(argv) != "rm" {
		return nil
	}
	args := argv[1:]
	if !hasAnyFlag(args, "-r", "-R", "--recursive") {
		return nil
	}
	for _, arg := range args {
		if arg == "" || arg[0] == '-' {
			continue
		}
		cleaned := filepath.Clean(arg)
		if cleaned == "/" || cleaned == "." || cleaned == ".." {
			return fmt.Errorf("refusing to recursively remove %q. This operation is permanently blocked", arg)
		}
		if arg == "~" || strings.HasPrefix(arg, "~/") {
			return fmt.Errorf("refusing to recursively remove %q. This operation is permanently blocked", arg)
		}
	}
	return nil
}
