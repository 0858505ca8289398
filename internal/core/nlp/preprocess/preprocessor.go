package preprocess

import (
	"regexp"
	"strings"

	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/pkg/common"
)

// 否定詞樣式，長片語放前面避免被短樣式吃掉
var negationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bga\s+boleh\s+(\w+)`),
	regexp.MustCompile(`(?i)\bgak\s+bisa\s+(\w+)`),
	regexp.MustCompile(`(?i)\btanpa\s+(\w+)`),
	regexp.MustCompile(`(?i)\btidak\s+(\w+)`),
	regexp.MustCompile(`(?i)\bjangan\s+(\w+)`),
	regexp.MustCompile(`(?i)\bhindari\s+(\w+)`),
	regexp.MustCompile(`(?i)\bgak\s+(\w+)`),
	regexp.MustCompile(`(?i)\bga\s+(\w+)`),
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
)

// Preprocessor 文字正規化器
type Preprocessor struct {
	informal map[string]string
	typos    map[string]string
}

// NewPreprocessor 建立正規化器
func NewPreprocessor(norm kb.NormalizationKB) *Preprocessor {
	informal := norm.Informal
	if informal == nil {
		informal = map[string]string{}
	}
	typos := norm.Typos
	if typos == nil {
		typos = map[string]string{}
	}
	return &Preprocessor{informal: informal, typos: typos}
}

// Normalize 正規化輸入文字並擷取否定片段
func (p *Preprocessor) Normalize(text string) common.NormalizedText {
	original := text

	// 小寫、壓縮空白、去除標點
	lowered := strings.ToLower(strings.TrimSpace(text))
	lowered = whitespaceRe.ReplaceAllString(lowered, " ")
	lowered = punctuationRe.ReplaceAllString(lowered, "")
	lowered = strings.TrimSpace(whitespaceRe.ReplaceAllString(lowered, " "))

	// 否定片段在替換前擷取，保留使用者的原始措辭
	negations := extractNegations(lowered)

	// 逐詞套用口語表，再套用錯字表
	words := strings.Fields(lowered)
	for i, w := range words {
		if formal, ok := p.informal[w]; ok {
			w = formal
		}
		if fixed, ok := p.typos[w]; ok {
			w = fixed
		}
		words[i] = w
	}
	normalized := strings.Join(words, " ")

	return common.NormalizedText{
		Original:   original,
		Normalized: normalized,
		Negations:  negations,
	}
}

// extractNegations 擷取所有否定片段的完整文字
func extractNegations(text string) []string {
	var spans []string
	claimed := make([]bool, len(text))
	for _, re := range negationPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			mark(claimed, loc[0], loc[1])
			spans = append(spans, text[loc[0]:loc[1]])
		}
	}
	return spans
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end && i < len(claimed); i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func mark(claimed []bool, start, end int) {
	for i := start; i < end && i < len(claimed); i++ {
		claimed[i] = true
	}
}
