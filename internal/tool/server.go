package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type gmailSvc interface {
	searchInboxSvc
	getEmailSvc
}

// NewServer creates an MCP server exposing the voice email assistant tools.
func NewServer(svc gmailSvc, dispatcher actionDispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "audiodraft", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_inbox",
		Description: "List the emails waiting in the inbox",
	}, NewSearchInbox(svc).SearchInbox)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_email",
		Description: "Get one email's full content with the body as plain text",
	}, NewGetEmail(svc).GetEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dispatch_action",
		Description: "Execute a terminal email action: draft a reply, decline, move to read, archive, or send",
	}, NewDispatchAction(svc, dispatcher).DispatchAction)

	return server
}
