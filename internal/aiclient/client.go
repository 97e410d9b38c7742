package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FallbackMessage is returned to users whenever the assistant backend
// fails. The assistant is non-critical: its errors never become hard
// errors at the API surface.
const FallbackMessage = "The assistant is unavailable right now. Please try again in a moment."

// Client calls the text-generation service. The service is opaque: it
// takes a prompt and returns free text, which is rendered as-is.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with a generous timeout; generation can be slow.
func New(baseURL, apiKey, model string, skip bool) *Client {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate sends a raw prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.Skip {
		return "Generated response (assistant disabled).", nil
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt required")
	}

	body, _ := json.Marshal(map[string]any{
		"model":       c.Model,
		"prompt":      prompt,
		"temperature": 0.7,
		"top_k":       40,
		"top_p":       0.95,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("empty generation result")
	}
	return out.Text, nil
}

// AssistantReply answers a user query with the campus data serialized
// into the prompt. students and records are marshalled as-is; the
// service's output is not parsed or validated.
func (c *Client) AssistantReply(ctx context.Context, query, currentDate string, students, records any) (string, error) {
	studentJSON, _ := json.Marshal(students)
	recordJSON, _ := json.Marshal(records)

	prompt := fmt.Sprintf(`You are an academic assistant for Academix.
Current Date: %s

Campus Data:
- Student List: %s
- Attendance Logs: %s

STRICT RULES:
1. Do NOT use markdown symbols like asterisks (*) for bolding or list markers.
2. Provide clean, professional plain text output.
3. Filter logs for Date: %s when asked for "today".
4. Include Department in all student mentions.

User Query: %s`, currentDate, studentJSON, recordJSON, currentDate, query)

	return c.Generate(ctx, prompt)
}

// LeadFollowup drafts a short follow-up message for a prospective
// student.
func (c *Client) LeadFollowup(ctx context.Context, name, course, lastNote string) (string, error) {
	if lastNote == "" {
		lastNote = "No notes available."
	}
	prompt := fmt.Sprintf(`You are an admissions assistant for Academix.
Generate a concise, friendly, and professional follow-up message for a prospective student.

Lead Details:
- Name: %s
- Course of Interest: %s
- Last Note: %s

RULES:
- Keep the message under 40 words.
- The tone should be encouraging and helpful.
- Do NOT use markdown.
- End with a question to encourage a reply.`, name, course, lastNote)

	return c.Generate(ctx, prompt)
}

// DaySummary condenses one day's attendance into a readable digest,
// used by the worker after session commits.
func (c *Client) DaySummary(ctx context.Context, date string, students, records any) (string, error) {
	studentJSON, _ := json.Marshal(students)
	recordJSON, _ := json.Marshal(records)

	prompt := fmt.Sprintf(`Analyze this attendance data and provide a concise human-readable summary.
Date: %s
Data: %s
Students: %s
Focus on trends, low attendance alerts, and key absentees.`, date, recordJSON, studentJSON)

	return c.Generate(ctx, prompt)
}

// Health checks if the generation service is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("generation service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("generation service unhealthy: %s", resp.Status)
	}

	return nil
}
