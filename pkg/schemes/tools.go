package schemes

import (
	"context"
	"strings"

	"github.com/go-go-golems/sevasetu/pkg/inference/tools"
	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/pkg/errors"
)

const (
	CheckEligibilityName   = "check_eligibility"
	SchemeDocumentsName    = "get_scheme_documents"
	EligibilityK           = 3
	SchemeDocumentsK       = 1
	NoSchemesFound         = "No specific schemes found for this profile."
	SchemeDetailsNotFound  = "Scheme details not found."
	eligibilityHeader      = "Based on your details, here are the top schemes found:\n"
	schemeDetailsPrefix    = "Details found: "
	checkEligibilityDesc   = "Checks eligibility by searching the government scheme database."
	schemeDocumentsDesc    = "Finds the documents required for a specific scheme."
	errBlankArgumentFormat = "%s must not be blank"
)

type CheckEligibilityInput struct {
	UserDetails string `json:"user_details" jsonschema:"required" jsonschema_description:"A string summary of the user (e.g., \"Farmer, income 20k, age 40\")."`
}

type SchemeDocumentsInput struct {
	SchemeName string `json:"scheme_name" jsonschema:"required" jsonschema_description:"Name of the scheme (e.g., \"PM Kisan\")."`
}

// Tools exposes the scheme index to the planner.
type Tools struct {
	retriever retrieval.Retriever
}

func NewTools(r retrieval.Retriever) *Tools {
	return &Tools{retriever: r}
}

// CheckEligibility searches the top 3 schemes matching the user's profile.
func (t *Tools) CheckEligibility(ctx context.Context, in CheckEligibilityInput) (string, error) {
	query := strings.TrimSpace(in.UserDetails)
	if query == "" {
		return "", errors.Errorf(errBlankArgumentFormat, "user_details")
	}
	results, err := t.retriever.Search(ctx, query, EligibilityK)
	if err != nil {
		return "", errors.Wrap(err, "search schemes")
	}
	if len(results) == 0 {
		return NoSchemesFound, nil
	}

	var b strings.Builder
	b.WriteString(eligibilityHeader)
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SchemeDocuments returns the best matching scheme document.
func (t *Tools) SchemeDocuments(ctx context.Context, in SchemeDocumentsInput) (string, error) {
	query := strings.TrimSpace(in.SchemeName)
	if query == "" {
		return "", errors.Errorf(errBlankArgumentFormat, "scheme_name")
	}
	results, err := t.retriever.Search(ctx, query, SchemeDocumentsK)
	if err != nil {
		return "", errors.Wrap(err, "search schemes")
	}
	if len(results) == 0 {
		return SchemeDetailsNotFound, nil
	}
	return schemeDetailsPrefix + results[0].Text, nil
}

// Definitions returns both tool definitions, check_eligibility first.
func (t *Tools) Definitions() ([]tools.ToolDefinition, error) {
	eligibility, err := tools.NewTool(CheckEligibilityName, checkEligibilityDesc, t.CheckEligibility)
	if err != nil {
		return nil, err
	}
	docs, err := tools.NewTool(SchemeDocumentsName, schemeDocumentsDesc, t.SchemeDocuments)
	if err != nil {
		return nil, err
	}
	return []tools.ToolDefinition{eligibility, docs}, nil
}

// NewRegistry builds the immutable registry of scheme tools on top of r.
func NewRegistry(r retrieval.Retriever) (*tools.Registry, error) {
	if r == nil {
		return nil, errors.New("retriever is nil")
	}
	defs, err := NewTools(r).Definitions()
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(defs...)
}
