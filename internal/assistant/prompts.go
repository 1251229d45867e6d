package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salesflow/salesflow-api/internal/domain"
)

const querySystemPrompt = `You are the SalesFlow CRM assistant. Answer questions about the user's sales data using only the CRM context provided.
If the context does not contain the data needed, or a source is listed under "unavailable", say so plainly instead of guessing.
Keep answers short and concrete. Use the currency values as given.

Respond with a single JSON object and nothing else:
{"reply": "<answer for the user>", "navigateTo": "<one of the allowed routes, or null>"}

Allowed routes for navigateTo: %s
Set navigateTo only when a page in the app would help the user act on the answer.`

const contractTermsSystemPrompt = `You are a contracts specialist drafting commercial terms for a B2B sales contract.
Write clear, enforceable terms in plain English, organised as numbered clauses.
Do not invent monetary values, dates or parties that are not in the contract details.

Respond with a single JSON object and nothing else:
{"terms": "<full contract terms text>", "notes": ["<short note for the reviewer>", ...]}`

const clientDraftSystemPrompt = `You turn a free-text description of a company into a CRM client record.
Only fill fields that the description supports; leave the rest as empty strings.
clientType must be 1 (Government), 2 (Private) or 3 (NonProfit).

Respond with a single JSON object and nothing else:
{"fields": {"name": "", "clientType": 2, "industry": "", "companySize": "", "website": "", "billingAddress": "", "taxNumber": ""}, "notes": ["<assumption or missing detail>", ...]}`

// QueryPrompt builds the system and user messages for a CRM question
func QueryPrompt(question string, crm *Context) (system, user string, err error) {
	data, err := json.Marshal(crm)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal assistant context: %w", err)
	}

	system = fmt.Sprintf(querySystemPrompt, strings.Join(AllowedRoutes, ", "))

	var b strings.Builder
	b.WriteString("CRM context (JSON):\n")
	b.Write(data)
	if len(crm.Unavailable) > 0 {
		b.WriteString("\n\nThese sources could not be loaded: ")
		b.WriteString(strings.Join(crm.Unavailable, ", "))
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return system, b.String(), nil
}

// ContractTermsPrompt builds the messages for drafting or improving contract terms
func ContractTermsPrompt(req domain.ContractTermsRequest) (system, user string, err error) {
	contract, err := json.Marshal(req.Contract)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal contract: %w", err)
	}

	var b strings.Builder
	switch req.Mode {
	case domain.ContractTermsImprove:
		b.WriteString("Improve the existing contract terms below.\n\nCurrent terms:\n")
		b.WriteString(strings.TrimSpace(req.CurrentTerms))
		b.WriteString("\n\n")
	default:
		b.WriteString("Draft contract terms for the contract below.\n\n")
	}
	b.WriteString("Contract details (JSON):\n")
	b.Write(contract)
	if instruction := strings.TrimSpace(req.Instruction); instruction != "" {
		b.WriteString("\n\nInstruction: ")
		b.WriteString(instruction)
	}
	return contractTermsSystemPrompt, b.String(), nil
}

// ClientDraftPrompt builds the messages for turning a description into client fields
func ClientDraftPrompt(description string) (system, user string) {
	return clientDraftSystemPrompt, "Company description:\n" + strings.TrimSpace(description)
}
