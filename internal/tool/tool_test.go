package tool_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"

	"github.com/amoyroud/audiodraft/internal/action"
	"github.com/amoyroud/audiodraft/internal/tool"
)

type gmailSvcMock struct {
	ListInboxFunc          func(ctx context.Context, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadataFunc func(ctx context.Context, msgID string) (*gmail.Message, error)
	GetMessageFunc         func(ctx context.Context, msgID string) (*gmail.Message, error)
}

func (m *gmailSvcMock) ListInbox(ctx context.Context, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	return m.ListInboxFunc(ctx, pageToken, maxResults)
}

func (m *gmailSvcMock) GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error) {
	return m.GetMessageMetadataFunc(ctx, msgID)
}

func (m *gmailSvcMock) GetMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	return m.GetMessageFunc(ctx, msgID)
}

type dispatcherMock struct {
	DispatchFunc func(ctx context.Context, desc action.Descriptor) action.Result
	SendFunc     func(ctx context.Context, desc action.Descriptor) action.Result
}

func (m *dispatcherMock) Dispatch(ctx context.Context, desc action.Descriptor) action.Result {
	return m.DispatchFunc(ctx, desc)
}

func (m *dispatcherMock) Send(ctx context.Context, desc action.Descriptor) action.Result {
	return m.SendFunc(ctx, desc)
}

func metadataMessage(msgID string) *gmail.Message {
	return &gmail.Message{
		Id:       msgID,
		ThreadId: "t-" + msgID,
		Snippet:  "snippet " + msgID,
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: fmt.Sprintf("Test User <test+%s@test.com>", msgID)},
				{Name: "Subject", Value: "Super important email " + msgID},
				{Name: "Date", Value: "2025-09-14 12:12:32"},
				{Name: "Message-ID", Value: fmt.Sprintf("<%s@test.com>", msgID)},
			},
		},
	}
}

func connect(t *testing.T, svc *gmailSvcMock, dispatcher *dispatcherMock) *mcp.ClientSession {
	t.Helper()

	server := tool.NewServer(svc, dispatcher)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args any) T {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.IsError, "tool returned error: %v", result.Content)
	require.NotEmpty(t, result.Content)

	var response T
	require.NoError(t, json.Unmarshal(
		[]byte(result.Content[0].(*mcp.TextContent).Text),
		&response,
	))

	return response
}

func TestSearchInbox(t *testing.T) {
	svc := &gmailSvcMock{
		ListInboxFunc: func(_ context.Context, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
			assert.Equal(t, int64(10), maxResults, "zero max_results defaults to 10")
			assert.Empty(t, pageToken)
			return &gmail.ListMessagesResponse{
				Messages:      []*gmail.Message{{Id: "m-001"}, {Id: "m-002"}},
				NextPageToken: "next-page-token-1",
			}, nil
		},
		GetMessageMetadataFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			return metadataMessage(msgID), nil
		},
	}

	session := connect(t, svc, &dispatcherMock{})

	response := callTool[tool.SearchInboxResponse](t, session, "search_inbox", tool.SearchInboxRequest{})

	require.Equal(t, 2, response.TotalResults)
	assert.Equal(t, "next-page-token-1", response.NextPageToken)
	assert.Equal(t, tool.EmailSummary{
		ID:        "m-001",
		ThreadID:  "t-m-001",
		Timestamp: "2025-09-14 12:12:32",
		From:      tool.EmailAddress{Name: "Test User", Email: "test+m-001@test.com"},
		Subject:   "Super important email m-001",
		Snippet:   "snippet m-001",
		MessageID: "<m-001@test.com>",
	}, response.Emails[0])
}

func TestSearchInboxProviderError(t *testing.T) {
	svc := &gmailSvcMock{
		ListInboxFunc: func(context.Context, string, int64) (*gmail.ListMessagesResponse, error) {
			return nil, fmt.Errorf("simulated backend outage")
		},
	}

	session := connect(t, svc, &dispatcherMock{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_inbox",
		Arguments: tool.SearchInboxRequest{},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "simulated backend outage")
}

func TestGetEmailConvertsHTMLBody(t *testing.T) {
	html := base64.URLEncoding.EncodeToString([]byte("<div>Hello</div><div>World</div>"))
	svc := &gmailSvcMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			msg := metadataMessage(msgID)
			msg.Payload.MimeType = "text/html"
			msg.Payload.Body = &gmail.MessagePartBody{Data: html}
			return msg, nil
		},
	}

	session := connect(t, svc, &dispatcherMock{})

	response := callTool[tool.GetEmailResponse](t, session, "get_email", tool.GetEmailRequest{EmailID: "m-007"})

	assert.Equal(t, "m-007", response.Summary.ID)
	assert.Equal(t, "Hello\nWorld", response.BodyText)
}

func TestGetEmailPrefersPlainText(t *testing.T) {
	svc := &gmailSvcMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			msg := metadataMessage(msgID)
			msg.Payload.Parts = []*gmail.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<b>rich</b>"))},
				},
				{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("plain body"))},
				},
			}
			return msg, nil
		},
	}

	session := connect(t, svc, &dispatcherMock{})

	response := callTool[tool.GetEmailResponse](t, session, "get_email", tool.GetEmailRequest{EmailID: "m-001"})

	assert.Equal(t, "plain body", response.BodyText)
}

func TestDispatchActionArchive(t *testing.T) {
	var got action.Descriptor
	svc := &gmailSvcMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			return metadataMessage(msgID), nil
		},
	}
	dispatcher := &dispatcherMock{
		DispatchFunc: func(_ context.Context, desc action.Descriptor) action.Result {
			got = desc
			return action.Result{Success: true, Message: "Email archived"}
		},
	}

	session := connect(t, svc, dispatcher)

	response := callTool[tool.DispatchActionResponse](t, session, "dispatch_action", tool.DispatchActionRequest{
		Action:  "archive",
		EmailID: "m-003",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "Email archived", response.Message)
	assert.Equal(t, action.Archive, got.Type)
	assert.Equal(t, "m-003", got.Target.ID)
	assert.Equal(t, "<m-003@test.com>", got.Target.MessageID)
}

func TestDispatchActionSendCarriesCC(t *testing.T) {
	var got action.Descriptor
	svc := &gmailSvcMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			return metadataMessage(msgID), nil
		},
	}
	dispatcher := &dispatcherMock{
		SendFunc: func(_ context.Context, desc action.Descriptor) action.Result {
			got = desc
			return action.Result{Success: true, Message: "Reply sent"}
		},
	}

	session := connect(t, svc, dispatcher)

	response := callTool[tool.DispatchActionResponse](t, session, "dispatch_action", tool.DispatchActionRequest{
		Action:    "speech-to-text",
		EmailID:   "m-004",
		DraftBody: "final text",
		Send:      true,
		CC:        []tool.EmailAddress{{Name: "Maria", Email: "maria@x.com"}},
	})

	require.True(t, response.Success)
	require.Len(t, got.CC, 1)
	assert.Equal(t, "maria@x.com", got.CC[0].Email)
}

func TestDispatchActionValidationFailureIsNotToolError(t *testing.T) {
	svc := &gmailSvcMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			return metadataMessage(msgID), nil
		},
	}
	dispatcher := &dispatcherMock{
		DispatchFunc: func(context.Context, action.Descriptor) action.Result {
			return action.Result{Success: false, Message: "please select a decline template", Kind: action.KindValidation}
		},
	}

	session := connect(t, svc, dispatcher)

	response := callTool[tool.DispatchActionResponse](t, session, "dispatch_action", tool.DispatchActionRequest{
		Action:  "quick-decline",
		EmailID: "m-005",
	})

	assert.False(t, response.Success)
	assert.Equal(t, string(action.KindValidation), response.Kind)
}

func TestDispatchActionUnknownAction(t *testing.T) {
	session := connect(t, &gmailSvcMock{}, &dispatcherMock{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "dispatch_action",
		Arguments: tool.DispatchActionRequest{Action: "explode", EmailID: "m-001"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "unknown action")
}
