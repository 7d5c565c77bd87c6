package qa

import (
	"fmt"
	"log"
	"os"
	"strings"
)

const (
	keyPointsPlaceholder = "{key_points_str}"
	questionPlaceholder  = "{question}"
)

const defaultKnowledgeTemplate = `你是一个智能教学助手，请根据以下关键知识点回答用户的问题：

关键知识点：
{key_points_str}

请基于以上关键知识点，用简洁明了的语言回答用户的问题。回答时请注意：
1. 使用学生容易理解的语言
2. 适当举例说明
3. 回答要准确、简洁`

const defaultFallbackTemplate = `你是一名数学家教，请用简洁的语言回答八年级数学问题：{question}
请注意：
1. 回答要准确、简洁
2. 使用学生容易理解的语言
3. 适当举例说明`

// Assembler builds system prompts from per-topic template files, falling back
// to built-in defaults when no file exists at the given path.
type Assembler struct {
	logger *log.Logger
}

func NewAssembler() *Assembler {
	return &Assembler{logger: log.New(log.Writer(), "[PROMPT] ", log.LstdFlags)}
}

// KnowledgePrompt renders the knowledge-grounded system prompt, substituting
// the key points as a bulleted list. An empty key-point list renders as an
// empty block, not an error.
func (a *Assembler) KnowledgePrompt(keyPoints []string, templatePath string) (string, error) {
	lines := make([]string, 0, len(keyPoints))
	for _, p := range keyPoints {
		lines = append(lines, "- "+p)
	}
	keyPointsStr := strings.Join(lines, "\n")
	return a.render(templatePath, defaultKnowledgeTemplate, keyPointsPlaceholder, keyPointsStr)
}

// FallbackPrompt renders the context-free system prompt around the normalized
// question.
func (a *Assembler) FallbackPrompt(question string, templatePath string) (string, error) {
	return a.render(templatePath, defaultFallbackTemplate, questionPlaceholder, question)
}

// render substitutes value for placeholder in the file template at path, or
// in the built-in default when path is empty or points at a missing file. A
// file template without the placeholder is malformed.
func (a *Assembler) render(path, fallback, placeholder, value string) (string, error) {
	template := fallback
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			template = string(b)
			a.logger.Printf("loaded prompt template: %s", path)
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt template %s: %w", path, err)
		}
	}
	if !strings.Contains(template, placeholder) {
		return "", fmt.Errorf("prompt template missing placeholder %s", placeholder)
	}
	return strings.ReplaceAll(template, placeholder, value), nil
}
