// Package rules holds argument-level checks applied to each command before
// it runs. Hardcoded rules are always enforced; config rules come from the
// policy section of the config file.
package rules

import (
	"path/filepath"
	"strings"
)

// CheckFunc validates one command's argument vector, argv[0] being the
// program. Returns a non-nil error to block execution.
type CheckFunc func(argv []string) error

// RuleSet holds an ordered list of validation rules. Hardcoded rules run first
// and cannot be removed. Config rules are appended after.
type RuleSet struct {
	hardcoded []CheckFunc
	config    []CheckFunc
}

// NewRuleSet creates a RuleSet with the given hardcoded rules.
func NewRuleSet(hardcoded ...CheckFunc) *RuleSet {
	return &RuleSet{hardcoded: hardcoded}
}

// AddConfig appends config-driven rules.
func (rs *RuleSet) AddConfig(fns ...CheckFunc) {
	rs.config = append(rs.config, fns...)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.hardcoded) + len(rs.config)
}

// Check runs every rule against argv, hardcoded rules first. A nil RuleSet
// or an empty argv passes.
func (rs *RuleSet) Check(argv []string) error {
	if rs == nil || len(argv) == 0 {
		return nil
	}
	for _, fn := range rs.hardcoded {
		if err := fn(argv); err != nil {
			return err
		}
	}
	for _, fn := range rs.config {
		if err := fn(argv); err != nil {
			return err
		}
	}
	return nil
}

// program returns the base name of argv[0], so /bin/rm and rm match alike.
func program(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return filepath.Base(argv[0])
}

// findFlag returns the first element of args matching one of flags, or ""
// if none does. It handles:
//   - Exact match: "-f" matches "-f"
//   - Combined short flags: "-rf" matches "-r" and "-f"
//   - Short flag with value: "-j4" matches "-j"
//   - Long flag with =: "--flag=value" matches "--flag"
func findFlag(args []string, flags ...string) string {
	for _, arg := range args {
		if arg == "" || arg[0] != '-' {
			continue
		}
		for _, flag := range flags {
			if arg == flag {
				return arg
			}
			if len(flag) == 2 && flag[0] == '-' && flag[1] != '-' &&
				len(arg) > 2 && arg[1] != '-' {
				if strings.ContainsRune(arg[1:], rune(flag[1])) {
					return arg
				}
			}
			if len(flag) > 2 && flag[0:2] == "--" && strings.HasPrefix(arg, flag+"=") {
				return arg
			}
		}
	}
	return ""
}

func hasAnyFlag(args []string, flags ...string) bool {
	return findFlag(args, flags...) != ""
}
