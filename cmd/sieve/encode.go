package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/sieve/pkg/rule"
	"github.com/praetorian-inc/sieve/pkg/types"
)

var (
	encodeRulesPath string
	encodeRoute     uint32
)

var encodeCmd = &cobra.Command{
	Use:   "encode [PATTERN...]",
	Short: "Encode patterns as a rule blob",
	Long: `Print the base64 rule blob for the given patterns, or for one route of a
rule file when --rules is set. The blob is what load requests and the C
interface accept.`,
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringVar(&encodeRulesPath, "rules", "", "Rule file to read the route from")
	encodeCmd.Flags().Uint32Var(&encodeRoute, "route", uint32(types.DefaultRoute), "Route to encode from --rules")
}

func runEncode(cmd *cobra.Command, args []string) error {
	patterns := args
	if encodeRulesPath != "" {
		if len(args) > 0 {
			return fmt.Errorf("patterns cannot be given together with --rules")
		}
		f, err := rule.LoadFile(encodeRulesPath)
		if err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		r, ok := f.Find(types.RouteID(encodeRoute))
		if !ok {
			return fmt.Errorf("route %d not found in %s", encodeRoute, encodeRulesPath)
		}
		patterns = r.Patterns
	}

	blob, err := rule.Encode(patterns)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), blob)
	return nil
}
