package cli

import (
	"github.com/spf13/cobra"

	"github.com/Azee177/jianli/internal/rewrite"
)

var (
	rewriteIntent  string
	rewriteCompany string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [span-file]",
	Short: "Produce conservative, balanced and aggressive rewrites of a resume span",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := rewrite.ParseIntent(rewriteIntent)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readFile(args[0])
		if err != nil {
			return err
		}
		client, err := llmFromContext(cmd.Context())
		if err != nil {
			return err
		}
		out, err := rewrite.Engine{Client: client}.Rewrite(cmd.Context(), rewrite.Request{
			Text:    text,
			Intent:  rewriteIntent,
			Company: rewriteCompany,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd, out)
	},
}

var factcheckCmd = &cobra.Command{
	Use:   "factcheck [original-file] [rewritten-file]",
	Short: "Report the words and figures a rewrite added",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := readFile(args[0])
		if err != nil {
			return err
		}
		rewritten, err := readFile(args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd, rewrite.ValidateFactuality(original, rewritten))
	},
}

func init() {
	rewriteCmd.Flags().StringVar(&rewriteIntent, "intent", "star", "Rewrite intent: star, quantify, deduplicate, translate or company-style")
	rewriteCmd.Flags().StringVar(&rewriteCompany, "company", "", "Target company for company-style rewrites")
}
