package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Gemini is a Classifier backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini classifier. If model is empty a sensible
// default is used.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

var _ Classifier = (*Gemini)(nil)

// ClassifyComment asks the model whether a YouTube comment compliments the
// board owner. A response that cannot be parsed is logged and reported as
// not-a-compliment.
func (g *Gemini) ClassifyComment(ctx context.Context, owner, comment string) (CommentVerdict, error) {
	prompt := fmt.Sprintf(`You are a YouTube compliment filter.
The user is going to pass you a comment from a YouTube video.
Your job is to determine if it is a compliment to the creator of the video (%s) or not.

Respond with JSON only, in this shape:
{"isCompliment": <bool>, "compliment": "<the comment rewritten in English as a compliment directed at %s, or 'Not Applicable' if it is not a compliment>"}

Comment:
%s`, owner, owner, comment)

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return CommentVerdict{}, err
	}

	var verdict CommentVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		log.Printf("[Classifier] Unparseable comment verdict, treating as not a compliment: %v", err)
		return CommentVerdict{}, nil
	}
	return verdict, nil
}

// ClassifyScreenshot asks the model to extract a compliment and its author
// from a screenshot image.
func (g *Gemini) ClassifyScreenshot(ctx context.Context, image []byte, mimeType string) (ScreenshotVerdict, error) {
	prompt := `You are a compliment extractor.
Look at this screenshot and respond with JSON only, in this shape:
{"isCompliment": <bool>, "compliment": "<a compliment based on the screenshot, rewritten and directed at the person mentioned, or 'Not Applicable' if it is not a compliment>", "complimenter": "<the user who delivered the compliment; use @someone if you are not sure>"}`

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return ScreenshotVerdict{}, fmt.Errorf("classify screenshot: %w", err)
	}
	raw, err := firstText(result)
	if err != nil {
		return ScreenshotVerdict{}, err
	}

	var verdict ScreenshotVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		log.Printf("[Classifier] Unparseable screenshot verdict, treating as not a compliment: %v", err)
		return ScreenshotVerdict{Complimenter: "@someone"}, nil
	}
	if verdict.Complimenter == "" {
		verdict.Complimenter = "@someone"
	}
	return verdict, nil
}

// GenerateCompliment summarizes a sample of kudo texts into one fresh
// second-person compliment. With no kudos the model's own empty-input
// behaviour is forwarded unmasked.
func (g *Gemini) GenerateCompliment(ctx context.Context, kudoTexts []string) (string, error) {
	prompt := fmt.Sprintf(`You are a compliment creator.
The user is going to provide you with a list of previous kudos.
Your job is to summarize the kudos and generate a relevant compliment that encompasses the traits that the kudos highlight.
The compliment will be delivered to the person who received the kudos, so you should use statements like "You are...".
Keep it succinct, yet poignant.
Return only the compliment, no prefix or description.

-%s`, strings.Join(kudoTexts, "\n\n\n\n-"))

	return g.generateText(ctx, prompt)
}

func (g *Gemini) generateText(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return firstText(result)
}

func firstText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// cleanJSON strips the markdown code fences some models wrap JSON in.
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
