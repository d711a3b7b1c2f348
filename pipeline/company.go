package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/casualjim/tickertape/provider"
	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/sjson"
)

// CompanyInfo is the structured intent extracted from a question.
type CompanyInfo struct {
	Company     string `json:"company" jsonschema_description:"The full legal company name"`
	Ticker      string `json:"ticker" jsonschema_description:"The stock market ticker symbol"`
	SearchQuery string `json:"searchQuery" jsonschema_description:"A detailed search query to find recent financial data, risks, and market analysis"`
}

// Complete reports whether every field is set.
func (c CompanyInfo) Complete() bool {
	return strings.TrimSpace(c.Company) != "" &&
		strings.TrimSpace(c.Ticker) != "" &&
		strings.TrimSpace(c.SearchQuery) != ""
}

// CompanyInfoResult is the outcome of decoding an extraction answer. Exactly one
// of Info and Err is meaningful.
type CompanyInfoResult struct {
	Info CompanyInfo
	Err  error
}

func (r CompanyInfoResult) OK() bool {
	return r.Err == nil
}

// ParseError describes an extraction answer that isn't a usable CompanyInfo.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var companyInfoOutput = provider.NewStructuredOutput[CompanyInfo](
	"company_info",
	"The company a question is about and a search query for researching it",
)

const companyInfoSchemaURL = "tickertape://schemas/company_info.json"

// companyInfoSchema validates answers against the response format minus its
// additionalProperties restriction: extra keys are ignored, the three
// required fields are not.
var companyInfoSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(companyInfoOutput.Schema)
	if err != nil {
		return nil, err
	}
	if raw, err = sjson.DeleteBytes(raw, "additionalProperties"); err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(companyInfoSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(companyInfoSchemaURL)
})

// ParseCompanyInfo decodes and validates an extraction answer. Markdown code
// fences around the JSON are tolerated.
func ParseCompanyInfo(raw string) CompanyInfoResult {
	body := stripCodeFence(raw)
	if body == "" {
		return CompanyInfoResult{Err: &ParseError{Reason: "empty response", Raw: raw}}
	}

	schema, err := companyInfoSchema()
	if err != nil {
		return CompanyInfoResult{Err: &ParseError{Reason: "company info schema unavailable", Raw: raw, Err: err}}
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return CompanyInfoResult{Err: &ParseError{Reason: "response is not valid json", Raw: raw, Err: err}}
	}
	if err := schema.Validate(inst); err != nil {
		return CompanyInfoResult{Err: &ParseError{Reason: "response does not match the company info schema", Raw: raw, Err: err}}
	}

	var info CompanyInfo
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		return CompanyInfoResult{Err: &ParseError{Reason: "response is not valid json", Raw: raw, Err: err}}
	}
	if !info.Complete() {
		return CompanyInfoResult{Err: &ParseError{Reason: "response has empty fields", Raw: raw}}
	}
	return CompanyInfoResult{Info: info}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
