package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/gaps"
	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/requirements"
)

var extractCmd = &cobra.Command{
	Use:   "extract [posting-file]",
	Short: "List the categorized requirement lines of one job posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readFile(args[0])
		if err != nil {
			return err
		}
		client, err := llmFromContext(cmd.Context())
		if err != nil {
			return err
		}
		ex := requirements.Extractor{Classifier: requirements.LLMClassifier{Client: client}}
		reqs := ex.Extract(cmd.Context(), text)
		if reqs == nil {
			reqs = []requirements.Requirement{}
		}
		return writeJSON(cmd, reqs)
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster [posting-file...]",
	Short: "Cluster the requirements of several postings into commonality dimensions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadItems(cmd.Context(), args)
		if err != nil {
			return err
		}
		return writeJSON(cmd, commonality.Cluster(items))
	},
}

var gapThreshold float64

var gapCmd = &cobra.Command{
	Use:   "gap [resume-file] [posting-file...]",
	Short: "Compare a resume against the dimensions of several postings",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, err := readFile(args[0])
		if err != nil {
			return err
		}
		items, err := loadItems(cmd.Context(), args[1:])
		if err != nil {
			return err
		}
		threshold := gapThreshold
		if !cmd.Flags().Changed("threshold") {
			threshold = configFromContext(cmd.Context()).GapCoverageThreshold
		}
		dims := commonality.Cluster(items)
		found := gaps.Analyzer{Threshold: threshold}.Analyze(resume, dims)
		return writeJSON(cmd, gapReport{
			Dimensions:  dims,
			Gaps:        found,
			Suggestions: gaps.Suggest(found),
		})
	},
}

type gapReport struct {
	Dimensions  []commonality.Dimension `json:"dimensions"`
	Gaps        []gaps.Item             `json:"gaps"`
	Suggestions []gaps.Suggestion       `json:"suggestions"`
}

// loadItems reads each posting file as one item; the file name stands in for
// the company so distinct files count as distinct postings.
func loadItems(ctx context.Context, paths []string) ([]jds.Item, error) {
	client, err := llmFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ex := requirements.Extractor{Classifier: requirements.LLMClassifier{Client: client}}
	items := make([]jds.Item, 0, len(paths))
	for i, path := range paths {
		text, err := readFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		items = append(items, jds.Item{
			ID:           fmt.Sprintf("jd-%d", i+1),
			Company:      name,
			Title:        firstLine(text),
			Text:         text,
			Requirements: ex.Extract(ctx, text),
			Tag:          jds.TagComparable,
			SourceName:   "file",
		})
	}
	return items, nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

func init() {
	gapCmd.Flags().Float64Var(&gapThreshold, "threshold", 0, "Coverage below which a dimension is a gap, 0 to 1 (default: GAP_COVERAGE_THRESHOLD)")
}
