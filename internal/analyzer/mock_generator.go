package analyzer

import (
	"fmt"
	"math/rand"
	"strings"

	"go-product-similarity/pkg/models"
)

// MockScores is the fixed set mock scores are drawn from
var MockScores = []int{75, 82, 63, 90, 45, 78, 67, 85, 72, 58}

// Picker returns an index in [0, n)
type Picker func(n int) int

// MockAnalysis is a synthetic narrative and the score embedded in it
type MockAnalysis struct {
	Score     int
	Narrative string
}

// MockGenerator produces stand-in analyses when no model is available
type MockGenerator struct {
	pick Picker
}

// NewMockGenerator uses pick to choose scores; nil means math/rand
func NewMockGenerator(pick Picker) *MockGenerator {
	if pick == nil {
		pick = rand.Intn
	}
	return &MockGenerator{pick: pick}
}

var percentNeutralizer = strings.NewReplacer("%", " pct", "％", " pct")

// Generate renders a narrative whose closing line states the chosen score
func (g *MockGenerator) Generate(imageA, imageB models.ImageInput) MockAnalysis {
	idx := g.pick(len(MockScores))
	if idx < 0 || idx >= len(MockScores) {
		idx = 0
	}
	score := MockScores[idx]

	nameA, nameB := neutralize(imageA.Name), neutralize(imageB.Name)
	descA, descB := neutralize(imageA.Description), neutralize(imageB.Description)
	bothDescribed := descA != "" && descB != ""

	var sb strings.Builder
	sb.WriteString("基于AI多模态分析，结合商品图片和描述信息，这两个商品的详细对比如下：\n\n")

	sb.WriteString("**商品信息概览：**\n")
	fmt.Fprintf(&sb, "- 商品A：%s\n  %s\n", nameA, describe(descA))
	fmt.Fprintf(&sb, "- 商品B：%s\n  %s\n\n", nameB, describe(descB))

	sb.WriteString("**外观特征分析：**\n")
	sb.WriteString("- 商品A: 具有独特的设计风格和视觉特征\n")
	sb.WriteString("- 商品B: 展现出相应的产品形态和外观元素\n\n")

	sb.WriteString("**功能定位对比：**\n")
	if bothDescribed {
		positioning := "存在差异"
		if score > 70 {
			positioning = "较为接近"
		}
		fmt.Fprintf(&sb, "- 基于描述信息，两个商品在功能定位上%s\n", positioning)
		fmt.Fprintf(&sb, "- 使用场景接近度: %d%%\n\n", max(0, score-5))
	} else {
		sb.WriteString("- 缺少详细描述信息，主要基于视觉特征进行分析\n\n")
	}

	sb.WriteString("**分项评估：**\n")
	fmt.Fprintf(&sb, "- 产品类别一致性: %d%%\n", score)
	fmt.Fprintf(&sb, "- 外观设计接近度: %d%%\n", max(0, score-10))
	fmt.Fprintf(&sb, "- 功能特征重合度: %d%%\n", min(100, score+5))
	if descA != "" || descB != "" {
		fmt.Fprintf(&sb, "- 描述信息契合度: %d%%\n", max(20, score-15))
	}
	sb.WriteString("\n")

	sb.WriteString("**综合分析：**\n")
	fmt.Fprintf(&sb, "两个商品在整体特征上显示出 %d%% 的相似度。%s\n\n", score, grade(score))

	if bothDescribed {
		sb.WriteString("**商品描述分析建议：**\n")
		sb.WriteString("商品描述信息有助于更准确的相似度判断。建议在描述中包含品牌、核心功能、目标用户群体等关键信息，以获得更精准的分析结果。\n\n")
	} else {
		sb.WriteString("**提示：**\n")
		sb.WriteString("如果提供更详细的商品描述信息（如品牌、功能、定位等），可以获得更准确的相似度分析结果。\n\n")
	}

	fmt.Fprintf(&sb, "**相似度：%d%%**", score)

	return MockAnalysis{Score: score, Narrative: sb.String()}
}

// neutralize keeps user text from introducing a competing percentage
func neutralize(s string) string {
	return percentNeutralizer.Replace(strings.TrimSpace(s))
}

func describe(desc string) string {
	if desc == "" {
		return "(未提供描述信息)"
	}
	return "描述：" + desc
}

func grade(score int) string {
	switch {
	case score > 80:
		return "产品具有高度相似性，可能属于同类产品或竞品关系。"
	case score > 60:
		return "产品存在较明显的相似特征，但也有自身的差异化定位。"
	case score > 40:
		return "产品有一定相似性，但差异特征更为显著。"
	default:
		return "产品差异较大，属于不同定位的商品类型。"
	}
}
