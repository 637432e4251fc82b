package rewrite

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateFactualityIdenticalInput(t *testing.T) {
	for _, x := range []string{"", "Built 3 services in Go", "负责 核心 系统 开发"} {
		f := ValidateFactuality(x, x)
		if !f.IsSafe || f.NewWordsCount != 0 || len(f.NewNumbers) != 0 || f.RiskLevel != RiskLow {
			t.Fatalf("ValidateFactuality(%q, same) = %+v", x, f)
		}
	}
}

func TestValidateFactualityFlagsNewNumbers(t *testing.T) {
	f := ValidateFactuality("Improved latency", "Improved latency by 10 20 30 40 50")
	if f.IsSafe || f.RiskLevel != RiskHigh {
		t.Fatalf("expected unsafe result, got %+v", f)
	}
	if strings.Join(f.NewNumbers, ",") != "10,20,30,40,50" {
		t.Fatalf("unexpected numbers %v", f.NewNumbers)
	}
	if len(f.Warnings) == 0 {
		t.Fatalf("expected warnings")
	}
}

func TestValidateFactualityWordThreshold(t *testing.T) {
	words := make([]string, 0, 20)
	for i := 0; i < 19; i++ {
		words = append(words, fmt.Sprintf("w%c", 'a'+i))
	}
	if f := ValidateFactuality("base", "base "+strings.Join(words, " ")); !f.IsSafe || f.NewWordsCount != 19 {
		t.Fatalf("19 new words should be safe, got %+v", f)
	}
	words = append(words, "wextra")
	if f := ValidateFactuality("base", "base "+strings.Join(words, " ")); f.IsSafe {
		t.Fatalf("20 new words should be unsafe, got %+v", f)
	}
}
