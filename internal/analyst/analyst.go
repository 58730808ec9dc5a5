// Package analyst asks a language model for business background on
// companies.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dossier/internal/llm"
)

var (
	ErrCompanyRequired  = errors.New("company name is required")
	ErrQuestionRequired = errors.New("question is required")
)

const companyInfoPrompt = `You are a business analyst providing information about companies. Give a comprehensive analysis of %s including:
1. A brief summary of what the company does
2. Their major clients/customers
3. Approximate team size/number of employees
4. Headquarters location and global presence
5. Most recent valuation or market cap if public

Format your response in clear sections with headings. If you're uncertain about specific details, acknowledge that and provide the most reliable information available.`

const followUpPrompt = `You are a business analyst providing information about companies. The user has already received general information about %s and now has a specific follow-up question. Answer their question about %s with specific, factual information. If you're uncertain about details, acknowledge that and provide the most reliable information available.`

type Analyst struct {
	completer llm.Completer
}

func New(completer llm.Completer) *Analyst {
	return &Analyst{completer: completer}
}

// CompanyInfo returns a general overview of company.
func (a *Analyst) CompanyInfo(ctx context.Context, company string) (string, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", ErrCompanyRequired
	}

	reply, err := a.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(companyInfoPrompt, company)},
		{Role: llm.RoleUser, Content: "Tell me about " + company},
	})
	if err != nil {
		return "", fmt.Errorf("company info for %q: %w", company, err)
	}
	return reply, nil
}

// FollowUp answers question in the context of an earlier overview of
// company.
func (a *Analyst) FollowUp(ctx context.Context, company, question string) (string, error) {
	company = strings.TrimSpace(company)
	question = strings.TrimSpace(question)
	if company == "" {
		return "", ErrCompanyRequired
	}
	if question == "" {
		return "", ErrQuestionRequired
	}

	reply, err := a.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(followUpPrompt, company, company)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("About %s: %s", company, question)},
	})
	if err != nil {
		return "", fmt.Errorf("follow-up for %q: %w", company, err)
	}
	return reply, nil
}
