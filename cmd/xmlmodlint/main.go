// Command xmlmodlint checks an xmlmod configuration file offline:
// namespace aliases, address syntax, duplicate rule targets, and the
// existence of referenced files. It runs no documents.
package main

import (
	"fmt"
	"os"

	"github.com/xmlforge/xmlmod/pkg/address"
	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/schema"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: xmlmodlint <config.json|config.yaml>")
		os.Exit(2)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(2)
	}

	problems := lint(cfg)
	for _, p := range problems {
		fmt.Println(p)
	}
	if len(problems) > 0 {
		fmt.Printf("Found %d problem(s).\n", len(problems))
		os.Exit(1)
	}
	fmt.Println("Configuration OK.")
}

func lint(cfg *config.Config) []string {
	var problems []string

	if err := cfg.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	seen := make(map[string]int)
	for i, rule := range cfg.Mappings {
		if prev, dup := seen[rule.XPath]; dup {
			problems = append(problems,
				fmt.Sprintf("mappings[%d]: address %q duplicates mappings[%d]; records for this target will interleave", i, rule.XPath, prev))
		} else {
			seen[rule.XPath] = i
		}

		compiled, err := address.Compile(rule.XPath, cfg.Namespaces)
		if err != nil {
			// Validate already reported the first compile failure;
			// report the rest individually.
			problems = append(problems, fmt.Sprintf("mappings[%d]: %v", i, err))
			continue
		}
		if compiled.Verbatim && !cfg.HandleCDATA {
			problems = append(problems,
				fmt.Sprintf("mappings[%d]: address uses %s but handle_cdata is disabled", i, address.CDATASuffix))
		}
	}

	if info, err := os.Stat(cfg.InputDirectory); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("input_directory %q is not a readable directory", cfg.InputDirectory))
	}

	if cfg.SchemaValidation.Enabled {
		if _, err := schema.Load(cfg.SchemaValidation.SchemaPath); err != nil {
			problems = append(problems, fmt.Sprintf("schema_validation: %v", err))
		}
	}

	return problems
}
