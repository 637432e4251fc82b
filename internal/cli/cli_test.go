package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/rewrite"
	"github.com/Azee177/jianli/internal/shared/config"
)

const posting = `Backend Engineer

Requirements
- 3+ years of Go
- Experience with Kubernetes
- Good communication skills`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	outputFile = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	if err := Execute(context.Background(), config.Config{LLMProvider: "none", GapCoverageThreshold: 0.3}); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.Bytes()
}

func TestClusterCommand(t *testing.T) {
	a := writeTemp(t, "acme.txt", posting)
	b := writeTemp(t, "globex.txt", posting)

	var dims []commonality.Dimension
	if err := json.Unmarshal(run(t, "cluster", a, b), &dims); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dims) == 0 || len(dims) > 5 {
		t.Fatalf("expected 1..5 dimensions, got %d", len(dims))
	}
	for i := 1; i < len(dims); i++ {
		if dims[i].Importance > dims[i-1].Importance {
			t.Fatalf("dimensions not ordered by importance: %+v", dims)
		}
	}
}

func TestFactcheckCommand(t *testing.T) {
	original := writeTemp(t, "original.txt", "Led a team of 5 engineers")
	rewritten := writeTemp(t, "rewritten.txt", "Led a team of 12 engineers and grew revenue 40%")

	var f rewrite.Factuality
	if err := json.Unmarshal(run(t, "factcheck", original, rewritten), &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(f.NewNumbers) != 2 || f.NewNumbers[0] != "12" || f.NewNumbers[1] != "40" {
		t.Fatalf("expected new numbers 12 and 40, got %+v", f)
	}
	if !f.IsSafe || f.RiskLevel != rewrite.RiskLow {
		t.Fatalf("two new figures should stay low risk, got %+v", f)
	}
}

func TestRewriteCommandRejectsUnknownIntent(t *testing.T) {
	span := writeTemp(t, "span.txt", "Built services")
	outputFile = ""
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"rewrite", "--intent", "poetry", span})
	if err := Execute(context.Background(), config.Config{LLMProvider: "none"}); err == nil {
		t.Fatalf("expected error for unknown intent")
	}
	rewriteIntent = "star"
}

func TestGapCommandHonoursZeroThreshold(t *testing.T) {
	resume := writeTemp(t, "resume.txt", "Painter and decorator.")
	a := writeTemp(t, "acme.txt", posting)

	var report gapReport
	if err := json.Unmarshal(run(t, "gap", "--threshold", "0", resume, a), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Dimensions) == 0 || len(report.Gaps) != 0 {
		t.Fatalf("expected dimensions and no gaps at threshold 0, got %d gaps", len(report.Gaps))
	}
}
