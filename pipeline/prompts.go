package pipeline

import (
	"strings"
	"text/template"

	"github.com/casualjim/tickertape/provider"
)

const extractionSystemPrompt = `You are a senior financial analyst specializing in deep company analysis and risk assessment. Your role is to identify both opportunities and potential risks that may not be immediately apparent from surface-level metrics.

Focus on:
- Accurate company identification
- Precise financial metrics
- Hidden risks and opportunities
- Competitive threats
- Market positioning challenges`

const extractionUserPrompt = `Extract company information from this question and respond with a JSON object that will help guide a thorough financial analysis.

Format your response as valid JSON with these fields:
- company: The full legal company name
- ticker: The stock market ticker symbol
- searchQuery: A detailed search query to find recent financial data, risks, and market analysis

Question: {{.question}}

Remember: Respond with ONLY the JSON object, no other text.`

const analysisSystemPrompt = `You are a critical financial analyst providing detailed investment analysis for professional investors. Your analysis should:

1. Focus on data accuracy and verification
2. Challenge assumptions in financial reporting
3. Identify potential risks and red flags
4. Compare metrics against industry standards
5. Analyze trends and their sustainability
6. Question management decisions and strategies
7. Consider macro factors and market conditions
8. Highlight both opportunities and threats
9. Provide context for all metrics
10. Flag any data inconsistencies or concerns

Be direct and critical where warranted. Your audience needs unvarnished truth, not corporate PR. Support all claims with data.`

const analysisUserPrompt = `Question: {{.question}}
Company: {{.company}}
Ticker: {{.ticker}}
Search Results: {{.searchResults}}

Provide a thorough, critical analysis that directly addresses the question while highlighting any relevant risks or opportunities.`

var (
	extractionTemplate = template.Must(template.New("extraction").Option("missingkey=error").Parse(extractionUserPrompt))
	analysisTemplate   = template.Must(template.New("analysis").Option("missingkey=error").Parse(analysisUserPrompt))
)

func render(tmpl *template.Template, data map[string]string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func extractionMessages(question string) ([]provider.Message, error) {
	user, err := render(extractionTemplate, map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	return []provider.Message{
		provider.System(extractionSystemPrompt),
		provider.User(user),
	}, nil
}

func analysisMessages(question string, info CompanyInfo, evidence Evidence) ([]provider.Message, error) {
	user, err := render(analysisTemplate, map[string]string{
		"question":      question,
		"company":       info.Company,
		"ticker":        info.Ticker,
		"searchResults": evidence.Raw,
	})
	if err != nil {
		return nil, err
	}
	return []provider.Message{
		provider.System(analysisSystemPrompt),
		provider.User(user),
	}, nil
}
