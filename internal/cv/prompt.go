package cv

import (
	_ "embed"
	"strings"

	"github.com/spigell/cv-builder/internal/ai"
)

//go:embed system_prompt.md
var systemPromptTemplate string

//go:embed user_prompt.md
var userPromptTemplate string

const (
	defaultLanguage = "English"
	notSpecified    = "not specified"
)

// Compose builds the system and user messages for a request. It is pure and
// deterministic; the only failure is a blank prompt.
func Compose(req GenerationRequest) (ai.Messages, error) {
	req = req.Normalized()
	if req.Prompt == "" {
		return nil, &InvalidRequestError{Field: "prompt", Rule: "required"}
	}

	system := strings.ReplaceAll(systemPromptTemplate, "{{LANGUAGE}}", orDefault(sanitizeLine(req.Language), defaultLanguage))

	user := strings.NewReplacer(
		"{{PROMPT}}", req.Prompt,
		"{{TARGET_JOB_TITLE}}", orDefault(sanitizeLine(req.TargetJobTitle), notSpecified),
		"{{TARGET_INDUSTRY}}", orDefault(sanitizeLine(req.TargetIndustry), notSpecified),
	).Replace(userPromptTemplate)

	return ai.Messages{
		{Role: ai.RoleSystem, Content: strings.TrimSpace(system)},
		{Role: ai.RoleUser, Content: strings.TrimSpace(user)},
	}, nil
}

// sanitizeLine collapses whitespace so a hint stays on its bullet line.
func sanitizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
