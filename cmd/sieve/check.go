package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/sieve"
	"github.com/praetorian-inc/sieve/pkg/types"
)

// errMatched is returned when checked text matches, so the process exits with status 1.
var errMatched = errors.New("text matched")

var (
	checkRulesPath string
	checkBlob      string
	checkRoute     uint32
	checkColor     string
	checkQuiet     bool
)

var checkCmd = &cobra.Command{
	Use:   "check [TEXT]",
	Short: "Check text against a route's rules",
	Long: `Check TEXT, or standard input when TEXT is omitted, against the rules of
one route. Rules come from a rule file (--rules) or an encoded rule blob (--blob).

Exits 0 when the text is clean, 1 when it matches and 2 on error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRulesPath, "rules", "", "Rule file to load")
	checkCmd.Flags().StringVar(&checkBlob, "blob", "", "Base64 rule blob to load into --route")
	checkCmd.Flags().Uint32Var(&checkRoute, "route", uint32(types.DefaultRoute), "Route to check against")
	checkCmd.Flags().StringVar(&checkColor, "color", "auto", "Color output: auto, always, never")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Print nothing, only set the exit status")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkRulesPath == "" && checkBlob == "" {
		return fmt.Errorf("one of --rules or --blob is required")
	}
	if checkRulesPath != "" && checkBlob != "" {
		return fmt.Errorf("--rules and --blob cannot be used together")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	engine, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}

	route := types.RouteID(checkRoute)
	if checkBlob != "" {
		if err := engine.LoadRoute(route, []byte(checkBlob)); err != nil {
			return fmt.Errorf("loading blob (status %d): %w", sieve.StatusCode(err), err)
		}
	} else {
		f, err := loadRuleFile(checkRulesPath, filterConfig(cfg))
		if err != nil {
			return err
		}
		r, ok := f.Find(route)
		if !ok {
			return fmt.Errorf("route %d not found in %s", route, checkRulesPath)
		}
		if err := engine.LoadPatterns(r.ID, r.Patterns); err != nil {
			return fmt.Errorf("loading route %d: %w", r.ID, err)
		}
	}

	text, err := checkText(cmd, args)
	if err != nil {
		return err
	}

	matched := engine.Check(route, text)
	if !checkQuiet {
		printCheckResult(cmd, route, matched)
	}
	if matched {
		return errMatched
	}
	return nil
}

// checkText returns the text argument, or all of stdin when it is not a terminal.
func checkText(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("no text given: pass TEXT or pipe it on stdin")
	}
	text, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return text, nil
}

func printCheckResult(cmd *cobra.Command, route types.RouteID, matched bool) {
	switch checkColor {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		} else {
			color.NoColor = false
		}
	}

	out := cmd.OutOrStdout()
	if matched {
		fmt.Fprintf(out, "%s route %d\n", color.New(color.Bold, color.FgHiRed).Sprint("MATCH"), route)
		return
	}
	fmt.Fprintf(out, "%s route %d\n", color.New(color.FgHiGreen).Sprint("clean"), route)
}
