package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/compliance"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/retrieval"
)

// Retriever answers clause and policy queries.
type Retriever interface {
	SearchDocuments(ctx context.Context, q retrieval.DocumentQuery) ([]retrieval.DocumentResult, error)
	ListPolicies(ctx context.Context, q retrieval.PolicyQuery) ([]retrieval.PolicySummary, error)
	SearchPolicies(ctx context.Context, q retrieval.PolicyQuery) (*retrieval.PolicySearchResult, error)
}

// QueryEmbedder builds the query vector for a question.
type QueryEmbedder interface {
	QueryVector(ctx context.Context, question string) ([]float32, string, error)
}

// Reporter builds compliance reports.
type Reporter interface {
	Report(ctx context.Context, filename string) (*compliance.Report, error)
}

// IndexStatus counts the indexed records of a file.
type IndexStatus interface {
	IndexedCount(ctx context.Context, filename string) (int64, error)
}

// queryVector embeds a non-blank question. Blank questions run without a
// vector leg.
func queryVector(ctx context.Context, embedder QueryEmbedder, question string) ([]float32, string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, "", nil
	}
	vec, text, err := embedder.QueryVector(ctx, question)
	if err != nil {
		return nil, "", fmt.Errorf("failed to embed query: %w", err)
	}
	return vec, text, nil
}

// makeSearchDocumentsHandler creates the search_documents tool handler.
// The question is rewritten into search intents for the vector leg while the
// original wording drives the lexical leg.
func makeSearchDocumentsHandler(retriever Retriever, embedder QueryEmbedder) func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		if input.Filename == "" {
			return nil, SearchDocumentsOutput{}, retrieval.ErrMissingFilename
		}
		vec, searchText, err := queryVector(ctx, embedder, input.Query)
		if err != nil {
			return nil, SearchDocumentsOutput{}, err
		}

		results, err := retriever.SearchDocuments(ctx, retrieval.DocumentQuery{
			Filename: input.Filename,
			Text:     input.Query,
			Vector:   vec,
			Groups:   input.Groups,
		})
		if err != nil {
			return nil, SearchDocumentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchDocumentsOutput{
				Results:    []retrieval.DocumentResult{},
				SearchText: searchText,
				Message:    fmt.Sprintf("No matching clauses found in %s. Check the filename with document_status.", input.Filename),
			}, nil
		}
		return nil, SearchDocumentsOutput{Results: results, SearchText: searchText}, nil
	}
}

// makeListPoliciesHandler creates the list_policies tool handler.
func makeListPoliciesHandler(retriever Retriever, embedder QueryEmbedder) func(
	context.Context, *mcp.CallToolRequest, ListPoliciesInput,
) (*mcp.CallToolResult, ListPoliciesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListPoliciesInput) (
		*mcp.CallToolResult, ListPoliciesOutput, error,
	) {
		vec, _, err := queryVector(ctx, embedder, input.Query)
		if err != nil {
			return nil, ListPoliciesOutput{}, err
		}
		policies, err := retriever.ListPolicies(ctx, retrieval.PolicyQuery{
			Text:   input.Query,
			Vector: vec,
			Groups: input.Groups,
		})
		if err != nil {
			return nil, ListPoliciesOutput{}, fmt.Errorf("failed to list policies: %w", err)
		}
		if policies == nil {
			policies = []retrieval.PolicySummary{}
		}
		return nil, ListPoliciesOutput{Policies: policies, Count: len(policies)}, nil
	}
}

// makeSearchPolicyHandler creates the search_policy tool handler.
// The vector comes from the intent rewrite of the query while the raw query
// drives lexical search and language detection.
func makeSearchPolicyHandler(retriever Retriever, embedder QueryEmbedder) func(
	context.Context, *mcp.CallToolRequest, SearchPolicyInput,
) (*mcp.CallToolResult, SearchPolicyOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPolicyInput) (
		*mcp.CallToolResult, SearchPolicyOutput, error,
	) {
		vec, _, err := queryVector(ctx, embedder, input.Query)
		if err != nil {
			return nil, SearchPolicyOutput{}, err
		}
		res, err := retriever.SearchPolicies(ctx, retrieval.PolicyQuery{
			Text:   input.Query,
			Vector: vec,
			Groups: input.Groups,
		})
		if err != nil {
			return nil, SearchPolicyOutput{}, fmt.Errorf("policy search failed: %w", err)
		}

		out := SearchPolicyOutput{Language: res.Language, Policies: res.Policies}
		if len(out.Policies) == 0 {
			out.Policies = []retrieval.PolicySummary{}
			out.Message = fmt.Sprintf("No %s policy matches this query.", res.Language)
		}
		return nil, out, nil
	}
}

// makeComplianceReportHandler creates the compliance_report tool handler.
func makeComplianceReportHandler(reporter Reporter) func(
	context.Context, *mcp.CallToolRequest, ComplianceReportInput,
) (*mcp.CallToolResult, ComplianceReportOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ComplianceReportInput) (
		*mcp.CallToolResult, ComplianceReportOutput, error,
	) {
		if input.Filename == "" {
			return nil, ComplianceReportOutput{}, retrieval.ErrMissingFilename
		}
		report, err := reporter.Report(ctx, input.Filename)
		if err != nil {
			return nil, ComplianceReportOutput{}, fmt.Errorf("failed to build report: %w", err)
		}
		return nil, ComplianceReportOutput{
			Report:       report,
			NonCompliant: report.NonCompliantCount(),
			Found:        len(report.Chunks) > 0,
		}, nil
	}
}

// makeDocumentStatusHandler creates the document_status tool handler.
func makeDocumentStatusHandler(status IndexStatus) func(
	context.Context, *mcp.CallToolRequest, DocumentStatusInput,
) (*mcp.CallToolResult, DocumentStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DocumentStatusInput) (
		*mcp.CallToolResult, DocumentStatusOutput, error,
	) {
		if input.Filename == "" {
			return nil, DocumentStatusOutput{}, retrieval.ErrMissingFilename
		}
		n, err := status.IndexedCount(ctx, input.Filename)
		if err != nil {
			return nil, DocumentStatusOutput{}, fmt.Errorf("search_error: failed to count records: %w", err)
		}
		return nil, DocumentStatusOutput{
			Filename: input.Filename,
			Indexed:  n > 0,
			Records:  n,
		}, nil
	}
}
