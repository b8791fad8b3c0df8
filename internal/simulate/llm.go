package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// #region llm-schema

// llmReply is the structured output requested from the model.
type llmReply struct {
	Reply string `json:"reply" jsonschema:"required,description=The counterpart's next message in one or two sentences"`
}

var replySchema = mustSchema(llmReply{})

// Schema reflects v into a strict JSON schema accepted by structured outputs.
func Schema(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mustSchema(v any) map[string]any {
	m, err := Schema(v)
	if err != nil {
		panic(err)
	}
	return m
}

// #endregion llm-schema

// #region llm-generator

const llmInstructions = `You simulate the other party in a personal conflict.
Reply exactly as they would, in their voice, given their communication style,
their mood and the phrases they tend to repeat. Do not give advice. Do not
soften the reply beyond what their style suggests. Answer with JSON only.`

// LLMGenerator phrases replies with a hosted language model.
type LLMGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewLLMGenerator creates a generator for model. logger may be nil.
func NewLLMGenerator(client *openai.Client, model string, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{
		client:    client,
		model:     model,
		maxTokens: 300,
		logger:    logger.With(slog.String("component", "simulate.llm")),
	}
}

// Name implements Generator.
func (g *LLMGenerator) Name() string { return "llm:" + g.model }

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.client == nil {
		return "", errors.New("llm generator: client is nil")
	}
	if g.model == "" {
		return "", errors.New("llm generator: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(g.maxTokens),
		Instructions:    openai.String(llmInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt(req), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "SimulatedReply",
					Schema:      replySchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Simulated counterpart reply"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm generator: %w", err)
	}

	var out llmReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.OutputText())), &out); err != nil {
		return "", fmt.Errorf("llm generator: decode reply: %w", err)
	}
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return "", errors.New("llm generator: empty reply")
	}
	g.logger.Debug("llm reply", "model", g.model, "chars", len(reply))
	return reply, nil
}

func prompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Communication style: %s\n", req.Model.CommunicationStyle)
	fmt.Fprintf(&b, "Mood: %s\n", req.Mood)
	fmt.Fprintf(&b, "Aggression baseline: %.2f\n", req.Model.AggressionBaseline)
	fmt.Fprintf(&b, "Passive aggression baseline: %.2f\n", req.Model.PassiveAggressionBaseline)
	if len(req.Model.TriggerWords) > 0 {
		fmt.Fprintf(&b, "Phrases they repeat: %s\n", strings.Join(req.Model.TriggerWords, " | "))
	}
	for _, p := range req.Model.ResponsePatterns {
		fmt.Fprintf(&b, "When told %q they answered %q\n", p.Trigger, p.Response)
	}
	fmt.Fprintf(&b, "\nMessage they are replying to:\n%s\n", req.Draft)
	return b.String()
}

// #endregion llm-generator
