// Package mcp exposes contract search, policy lookup and compliance reports
// as MCP tools.
package mcp

import (
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/compliance"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/legal"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/retrieval"
)

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	// Filename is the indexed contract to search in.
	Filename string `json:"filename" jsonschema:"The indexed contract file to search, e.g. msa.docx"`
	// Query is the user's question about the contract.
	Query string `json:"query" jsonschema:"The question or topic to look for in the contract"`
	// Groups are the caller's access groups.
	Groups []string `json:"groups,omitempty" jsonschema:"Access groups of the caller"`
}

// SearchDocumentsOutput contains the matching clauses.
type SearchDocumentsOutput struct {
	Results []retrieval.DocumentResult `json:"results"`
	// SearchText is the text that was embedded for the vector leg.
	SearchText string `json:"search_text"`
	// Message provides informational context (e.g., "No matching clauses found").
	Message string `json:"message,omitempty"`
}

// ListPoliciesInput defines the input parameters for the list_policies tool.
type ListPoliciesInput struct {
	Query  string   `json:"query,omitempty" jsonschema:"Optional topic to rank policies by"`
	Groups []string `json:"groups,omitempty" jsonschema:"Access groups of the caller"`
}

// ListPoliciesOutput contains policy titles and instructions.
type ListPoliciesOutput struct {
	Policies []retrieval.PolicySummary `json:"policies"`
	Count    int                       `json:"count"`
}

// SearchPolicyInput defines the input parameters for the search_policy tool.
type SearchPolicyInput struct {
	Query  string   `json:"query" jsonschema:"Clause or question to find the governing policy for"`
	Groups []string `json:"groups,omitempty" jsonschema:"Access groups of the caller"`
}

// SearchPolicyOutput contains the best policy in the query's language.
type SearchPolicyOutput struct {
	Language legal.Language            `json:"language"`
	Policies []retrieval.PolicySummary `json:"policies"`
	Message  string                    `json:"message,omitempty"`
}

// ComplianceReportInput defines the input parameters for the compliance_report tool.
type ComplianceReportInput struct {
	Filename string `json:"filename" jsonschema:"The indexed contract file to report on"`
}

// ComplianceReportOutput is the per-clause compliance view of a contract.
type ComplianceReportOutput struct {
	Report *compliance.Report `json:"report"`
	// NonCompliant is the number of non-compliant clauses.
	NonCompliant int `json:"non_compliant"`
	// Found is false when the file has no indexed clauses.
	Found bool `json:"found"`
}

// DocumentStatusInput defines the input parameters for the document_status tool.
type DocumentStatusInput struct {
	Filename string `json:"filename" jsonschema:"The contract file to check"`
}

// DocumentStatusOutput reports whether a contract is indexed.
type DocumentStatusOutput struct {
	Filename string `json:"filename"`
	Indexed  bool   `json:"indexed"`
	Records  int64  `json:"records"`
}
