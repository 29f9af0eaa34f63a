package strategy

import (
	"fmt"
	"strings"

	"go-product-similarity/internal/provider"
	"go-product-similarity/pkg/models"
)

// DefaultPrompt replaces a blank user prompt
const DefaultPrompt = "请分析这两个商品的相似度，从外观、功能、类别等方面进行详细对比，并给出0-100的相似度评分。"

const (
	noDescription = "未提供描述"
	closingAsk    = "请结合图片和商品描述信息，从外观特征、功能定位、品牌类别、使用场景等维度全面对比分析这两个商品的相似度，并在回答最后明确给出相似度评分（格式：相似度：XX%）。"
)

// PayloadOptions are the generation settings sent with every request
type PayloadOptions struct {
	MaxTokens   int
	Temperature float32
}

// BuildInstruction renders the text block: prompt, both product summaries, closing ask
func BuildInstruction(req models.AnalysisRequest) string {
	var sb strings.Builder
	sb.WriteString(req.Prompt)
	sb.WriteString("\n\n")
	writeProduct(&sb, "A", req.ImageA)
	sb.WriteString("\n")
	writeProduct(&sb, "B", req.ImageB)
	sb.WriteString("\n")
	sb.WriteString(closingAsk)
	return sb.String()
}

func writeProduct(sb *strings.Builder, label string, img models.ImageInput) {
	desc := strings.TrimSpace(img.Description)
	if desc == "" {
		desc = noDescription
	}
	fmt.Fprintf(sb, "商品%s信息：\n", label)
	fmt.Fprintf(sb, "- 图片文件名：%s\n", img.Name)
	fmt.Fprintf(sb, "- 商品描述：%s\n", desc)
}

// BuildPayload creates one user message ordered text, imageA, imageB
func BuildPayload(req models.AnalysisRequest, opts PayloadOptions) provider.Payload {
	return provider.Payload{
		Messages: []provider.Message{{
			Role: "user",
			Content: []provider.ContentPart{
				{Type: provider.PartTypeText, Text: BuildInstruction(req)},
				{Type: provider.PartTypeImageURL, ImageURL: &provider.ImageURL{URL: req.ImageA.Data}},
				{Type: provider.PartTypeImageURL, ImageURL: &provider.ImageURL{URL: req.ImageB.Data}},
			},
		}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      false,
	}
}
