// Package narrative turns attribution reports into client-facing commentary,
// via Gemini when configured and a deterministic template otherwise.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/aristath/quantscale/internal/domain"
)

// DefaultModel is the Gemini model used for commentary.
const DefaultModel = "gemini-2.5-flash"

// Input is everything the narrative layer may see: the attribution report,
// the applied exclusions, and the optimizer's outcome. Nothing else reaches
// the prompt.
type Input struct {
	Report        *domain.AttributionReport
	Exclusions    []string
	Benchmark     string
	Status        domain.OptimizationStatus
	TrackingError float64
}

// Reporter generates commentary. Without a configured client it degrades to
// the template renderer, and generation errors degrade the same way: the
// narrative never fails the pipeline.
type Reporter struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewReporter creates a reporter. An empty apiKey disables Gemini and leaves
// only the template path.
func NewReporter(ctx context.Context, apiKey string, log zerolog.Logger) *Reporter {
	r := &Reporter{
		model: DefaultModel,
		log:   log.With().Str("component", "narrative").Logger(),
	}

	if apiKey == "" {
		r.log.Warn().Msg("No Gemini API key configured, narrative uses the template renderer")
		return r
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to create Gemini client, narrative uses the template renderer")
		return r
	}
	r.client = client

	return r
}

// Generate produces commentary for the report. It returns the template
// rendering when Gemini is unavailable or errors.
func (r *Reporter) Generate(ctx context.Context, in Input) string {
	if in.Report == nil {
		return ""
	}
	if r.client == nil {
		return r.renderTemplate(in)
	}

	prompt, err := r.buildPrompt(in)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to build narrative prompt")
		return r.renderTemplate(in)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
	}
	result, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), config)
	if err != nil {
		r.log.Warn().Err(err).Msg("Gemini generation failed, falling back to template")
		return r.renderTemplate(in)
	}

	text, err := extractText(result)
	if err != nil {
		r.log.Warn().Err(err).Msg("Empty Gemini response, falling back to template")
		return r.renderTemplate(in)
	}

	r.log.Info().Int("chars", len(text)).Msg("Narrative generated")
	return text
}

func (r *Reporter) buildPrompt(in Input) (string, error) {
	contributors, err := json.MarshalIndent(in.Report.TopContributors, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode contributors: %w", err)
	}
	detractors, err := json.MarshalIndent(in.Report.TopDetractors, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode detractors: %w", err)
	}

	return fmt.Sprintf(userPromptTemplate,
		time.Now().Format("January 02, 2006"),
		benchmarkName(in.Benchmark),
		exclusionList(in.Exclusions),
		in.Status,
		in.TrackingError*100,
		in.Report.TotalActiveReturn*100,
		in.Report.AllocationEffect*100,
		in.Report.SelectionEffect*100,
		string(contributors),
		string(detractors),
	), nil
}

// renderTemplate produces deterministic commentary from the report fields.
func (r *Reporter) renderTemplate(in Input) string {
	report := in.Report

	var b strings.Builder
	fmt.Fprintf(&b, "Market Commentary - %s\n\n", time.Now().Format("January 02, 2006"))
	fmt.Fprintf(&b, "The portfolio was constructed against the %s benchmark with exclusions: %s. ",
		benchmarkName(in.Benchmark), exclusionList(in.Exclusions))
	fmt.Fprintf(&b, "The optimization completed with status %q at an annualized tracking error of %.2f%%.\n\n",
		in.Status, in.TrackingError*100)

	fmt.Fprintf(&b, "Over the trailing period the portfolio's active return was %.2f%%, "+
		"of which %.2f%% came from sector allocation and %.2f%% from security selection.\n\n",
		report.TotalActiveReturn*100, report.AllocationEffect*100, report.SelectionEffect*100)

	if len(report.TopContributors) > 0 {
		top := report.TopContributors[0]
		fmt.Fprintf(&b, "The largest contributor was %s (%s) adding %.2f%%. ",
			top.Symbol, top.Sector, top.Contribution*100)
	}
	if len(report.TopDetractors) > 0 {
		worst := report.TopDetractors[0]
		if !worst.Held {
			fmt.Fprintf(&b, "The largest detractor was %s (%s), an unheld position whose benchmark rally cost %.2f%% of active return.",
				worst.Symbol, worst.Sector, -worst.Contribution*100)
		} else {
			fmt.Fprintf(&b, "The largest detractor was %s (%s) costing %.2f%%.",
				worst.Symbol, worst.Sector, -worst.Contribution*100)
		}
	}

	return b.String()
}

func benchmarkName(benchmark string) string {
	if benchmark == "" {
		return "SPY"
	}
	return benchmark
}

func exclusionList(exclusions []string) string {
	if len(exclusions) == 0 {
		return "None"
	}
	return strings.Join(exclusions, ", ")
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("response contained no text parts")
	}
	return b.String(), nil
}
