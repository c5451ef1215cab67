package api

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/recruitmatch/pkg/kit"
	"github.com/hazyhaar/recruitmatch/pkg/match"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the recruitmatch MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *Service) {
	eps := svc.endpoints()
	registerResolveInstitution(srv, eps)
	registerScoreCandidate(srv, eps)
	registerFindDuplicates(srv, eps)
	registerListCorpora(srv, eps)
}

func registerResolveInstitution(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("resolve_institution",
		mcp.WithDescription("Resolve a free-text school or college name to its canonical entry (name, aliases, logo) in a reference corpus."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Institution name as typed, e.g. \"Ohio St\"")),
		mcp.WithString("corpus", mcp.Description("Corpus id (default: the server's default corpus)")),
	)

	kit.RegisterMCPTool(srv, tool, eps.resolve, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		q, _ := args["query"].(string)
		corpus, _ := args["corpus"].(string)
		return &kit.MCPDecodeResult{Request: &resolveReq{Query: q, Corpus: corpus}}, nil
	})
}

func registerScoreCandidate(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("score_candidate",
		mcp.WithDescription("Score how likely a stored athlete record is the same person as the search criteria (0-100, with factors and penalties)."),
		mcp.WithString("candidate", mcp.Required(), mcp.Description("Athlete record as a JSON object (firstName, lastName, fullName, emailAddress, phoneNumber, schoolId, updatedAt, ...)")),
		mcp.WithString("criteria", mcp.Required(), mcp.Description("Search criteria as a JSON object (firstName, lastName, fullName, email, phoneNumber, schoolId)")),
		mcp.WithString("match_type", mcp.Description("Lookup that found the candidate, e.g. email_match, name_school, phone_only")),
	)

	kit.RegisterMCPTool(srv, tool, eps.score, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		var sr scoreReq
		if err := jsonArg(args, "candidate", &sr.Candidate); err != nil {
			return nil, err
		}
		if err := jsonArg(args, "criteria", &sr.Criteria); err != nil {
			return nil, err
		}
		mt, _ := args["match_type"].(string)
		sr.MatchType = match.MatchType(mt)
		return &kit.MCPDecodeResult{Request: &sr}, nil
	})
}

func registerFindDuplicates(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("find_duplicates",
		mcp.WithDescription("Find stored athletes that are likely the same person as a submitted profile, ranked by confidence."),
		mcp.WithString("firstName", mcp.Description("First name")),
		mcp.WithString("lastName", mcp.Description("Last name")),
		mcp.WithString("fullName", mcp.Description("Full name, used when first and last are not given")),
		mcp.WithString("email", mcp.Description("Email address")),
		mcp.WithString("phoneNumber", mcp.Description("Phone number, any formatting")),
		mcp.WithString("schoolId", mcp.Description("School identifier")),
	)

	kit.RegisterMCPTool(srv, tool, eps.duplicates, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		text := func(key string) match.Text {
			v, _ := args[key].(string)
			return match.Text(v)
		}
		return &kit.MCPDecodeResult{Request: &match.Criteria{
			FirstName:   text("firstName"),
			LastName:    text("lastName"),
			FullName:    text("fullName"),
			Email:       text("email"),
			PhoneNumber: text("phoneNumber"),
			SchoolID:    text("schoolId"),
		}}, nil
	})
}

func registerListCorpora(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("list_corpora",
		mcp.WithDescription("List all loaded reference corpora with metadata (version, source, license, entity count)."),
	)

	kit.RegisterMCPTool(srv, tool, eps.listCorpora, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}

// jsonArg decodes a JSON object passed as a string argument.
func jsonArg(args map[string]any, key string, v any) error {
	s, _ := args[key].(string)
	if s == "" {
		return fmt.Errorf("%s is required", key)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
