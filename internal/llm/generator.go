package llm

import (
	"context"
	"fmt"
	"strings"
)

const answerSystemPrompt = `당신은 대학 행정 정보를 안내하는 친절한 어시스턴트입니다.
제공된 문서 내용만을 근거로 정확하게 답변하세요.

답변 형식:
1. 핵심 정보를 먼저 명확하게 제시
2. 담당 부서 및 연락처가 문서에 있으면 포함
3. 필요한 서류나 절차가 있다면 순서대로 안내
4. 근거 문서의 출처를 밝힘

문서에 없는 내용은 추측하지 말고, 담당 부서에 확인하라고 안내하세요.`

// AnswerGenerator turns retrieved context and a question into an answer
type AnswerGenerator struct {
	client      LLM
	model       string
	temperature float32
	maxTokens   int
}

// GeneratorOption is a functional option for configuring AnswerGenerator.
type GeneratorOption func(*AnswerGenerator)

// WithGeneratorModel overrides the client's default model.
func WithGeneratorModel(model string) GeneratorOption {
	return func(g *AnswerGenerator) {
		g.model = model
	}
}

// WithMaxTokens limits the answer length.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *AnswerGenerator) {
		g.maxTokens = n
	}
}

// NewAnswerGenerator creates an answer generator backed by client.
func NewAnswerGenerator(client LLM, opts ...GeneratorOption) *AnswerGenerator {
	g := &AnswerGenerator{
		client:      client,
		temperature: DefaultTemperature,
		maxTokens:   1024,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate answers question from context
func (g *AnswerGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	answer, err := g.client.Generate(ctx, BuildAnswerPrompt(contextText, question), GenerateOptions{
		Model:        g.model,
		SystemPrompt: answerSystemPrompt,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// BuildAnswerPrompt renders the user prompt sent with the answer system prompt
func BuildAnswerPrompt(contextText, question string) string {
	var b strings.Builder
	b.WriteString("[참고 문서]\n")
	b.WriteString(contextText)
	b.WriteString("\n\n[학생 질문]\n")
	b.WriteString(question)
	b.WriteString("\n\n위 문서를 바탕으로 학생의 질문에 답변해주세요.")
	return b.String()
}
