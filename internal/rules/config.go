package rules

import (
	"fmt"
	"sort"
)

// ProgramRule represents one program's rules from YAML config.
type ProgramRule struct {
	RejectFlags []string           `yaml:"reject_flags"`
	Subcommands map[string]SubRule `yaml:"subcommands"`
}

// SubRule represents rules for a specific subcommand.
type SubRule struct {
	RejectFlags []string `yaml:"reject_flags"`
}

// CompileProgramRule turns a single program's config into CheckFuncs.
func CompileProgramRule(name string, cfg ProgramRule) []CheckFunc {
	var fns []CheckFunc

	if len(cfg.RejectFlags) > 0 {
		flags := cfg.RejectFlags
		fns = append(fns, func(argv []string) error {
			if program(argv) != name {
				return nil
			}
			if f := findFlag(argv[1:], flags...); f != "" {
				return fmt.Errorf("%s: flag %s rejected by config rule", name, f)
			}
			return nil
		})
	}

	// Sorted so rule order, and so the reported violation, is stable.
	subs := make([]string, 0, len(cfg.Subcommands))
	for sub := range cfg.Subcommands {
		subs = append(subs, sub)
	}
	sort.Strings(subs)

	for _, sub := range subs {
		flags := cfg.Subcommands[sub].RejectFlags
		if len(flags) == 0 {
			continue
		}
		fns = append(fns, func(argv []string) error {
			if program(argv) != name || len(argv) < 2 || argv[1] != sub {
				return nil
			}
			if f := findFlag(argv[2:], flags...); f != "" {
				return fmt.Errorf("%s %s: flag %s rejected by config rule", name, sub, f)
			}
			return nil
		})
	}

	return fns
}

// Compile builds a RuleSet of the hardcoded rules followed by the rules in
// cfg, keyed by program name.
func Compile(cfg map[string]ProgramRule) *RuleSet {
	rs := NewRuleSet(Hardcoded()...)
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rs.AddConfig(CompileProgramRule(name, cfg[name])...)
	}
	return rs
}
