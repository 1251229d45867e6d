package assistant

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/salesflow/salesflow-api/internal/domain"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSON pulls a JSON object out of model output. Fenced blocks are
// unwrapped first; otherwise the text between the first '{' and the last '}'
// is tried.
func ExtractJSON(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if obj, ok := decodeObject(text); ok {
		return obj, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(text[start : end+1])
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ParseQueryResponse reads {reply, navigateTo}. Unparseable output becomes the
// reply verbatim with no navigation. navigateTo is sanitized against the allow-list.
func ParseQueryResponse(raw string) (resp domain.AssistantQueryResponse, parsed bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return domain.AssistantQueryResponse{Reply: strings.TrimSpace(raw)}, false
	}

	reply := stringField(obj, "reply")
	if reply == "" {
		reply = stringField(obj, "message")
	}
	if reply == "" {
		reply = strings.TrimSpace(raw)
	}

	return domain.AssistantQueryResponse{
		Reply:      reply,
		NavigateTo: SanitizeRoute(stringField(obj, "navigateTo")),
	}, true
}

// ParseContractTerms reads {terms, notes}. Unparseable output becomes the terms.
func ParseContractTerms(raw string) (resp domain.ContractTermsResponse, parsed bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return domain.ContractTermsResponse{Terms: strings.TrimSpace(raw), Notes: []string{}}, false
	}

	terms := stringField(obj, "terms")
	if terms == "" {
		terms = strings.TrimSpace(raw)
	}
	return domain.ContractTermsResponse{Terms: terms, Notes: stringList(obj["notes"])}, true
}

// ParseClientDraft reads {fields, notes}. Unparseable output yields empty
// fields with the raw text as the only note.
func ParseClientDraft(raw string) (resp domain.ClientDraftResponse, parsed bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return domain.ClientDraftResponse{
			Fields: domain.ClientDraftFields{ClientType: domain.ClientTypePrivate},
			Notes:  []string{strings.TrimSpace(raw)},
		}, false
	}

	fieldsObj, _ := obj["fields"].(map[string]any)
	if fieldsObj == nil {
		fieldsObj = obj
	}

	notes := stringList(obj["notes"])
	clientType, known := coerceClientType(fieldsObj["clientType"])
	if !known {
		notes = append(notes, "Client type could not be determined; defaulted to Private.")
	}

	return domain.ClientDraftResponse{
		Fields: domain.ClientDraftFields{
			Name:           stringField(fieldsObj, "name"),
			ClientType:     clientType,
			Industry:       stringField(fieldsObj, "industry"),
			CompanySize:    stringField(fieldsObj, "companySize"),
			Website:        stringField(fieldsObj, "website"),
			BillingAddress: stringField(fieldsObj, "billingAddress"),
			TaxNumber:      stringField(fieldsObj, "taxNumber"),
		},
		Notes: notes,
	}, true
}

func coerceClientType(v any) (domain.ClientType, bool) {
	switch val := v.(type) {
	case float64:
		ct := domain.ClientType(int(val))
		if float64(int(val)) == val && ct.IsValid() {
			return ct, true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			if ct := domain.ClientType(n); ct.IsValid() {
				return ct, true
			}
		}
		if ct, ok := domain.ParseClientType(val); ok {
			return ct, true
		}
	}
	return domain.ClientTypePrivate, false
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func stringList(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if strings.TrimSpace(val) != "" {
			out = append(out, strings.TrimSpace(val))
		}
	}
	return out
}
