package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lazypower/heartline/internal/engine"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		eng, _, where, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		log.Printf("mcp: serving over stdio, db %s", where)
		return newMCPServer(eng).Run(ctx, &mcp.StdioTransport{})
	},
}

type messageInput struct {
	Message string `json:"message" jsonschema:"Text the user sent"`
}

type userInput struct {
	UserID string `json:"user_id"        jsonschema:"User identity, usually the user's name"`
	Name   string `json:"name,omitempty" jsonschema:"How the companion addresses the user (default: user_id)"`
}

type chatInput struct {
	UserID  string `json:"user_id"        jsonschema:"User identity, usually the user's name"`
	Name    string `json:"name,omitempty" jsonschema:"How the companion addresses the user (default: user_id)"`
	Message string `json:"message"        jsonschema:"Text the user sent"`
}

func newMCPServer(eng *engine.Engine) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "heartline",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_triggers",
		Description: "Detect emotion candidates, affection triggers and situational flags in a message. Changes no state.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in messageInput) (*mcp.CallToolResult, any, error) {
		return textResult(jsonString(eng.Detect(in.Message))), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "relationship_status",
		Description: "Affection score, relationship stage, current emotion and title for a user.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in userInput) (*mcp.CallToolResult, any, error) {
		st, err := eng.Status(ctx, in.UserID, in.Name)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(jsonString(st)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compose_persona",
		Description: "Compose the persona instruction for the user's current emotion and relationship stage. Changes no state.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in userInput) (*mcp.CallToolResult, any, error) {
		text, err := eng.Instruction(ctx, in.UserID, in.Name)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(text), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_user",
		Description: "Forget all affection, emotion, history and events for a user.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in userInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(in.UserID) == "" {
			return errorResult(errors.New("user_id required")), nil, nil
		}
		if err := eng.Reset(ctx, in.UserID); err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(jsonString(map[string]string{"status": "reset", "user_id": in.UserID})), nil, nil
	})

	if eng.HasGenerator() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "chat",
			Description: "Send a message to 카오루코. Updates the relationship and returns her reply with any notices and events.",
		}, func(ctx context.Context, req *mcp.CallToolRequest, in chatInput) (*mcp.CallToolResult, any, error) {
			if strings.TrimSpace(in.Message) == "" {
				return errorResult(errors.New("message required")), nil, nil
			}
			res, err := eng.Chat(ctx, engine.Request{UserID: in.UserID, Name: in.Name, Message: in.Message})
			if err != nil {
				return errorResult(err), nil, nil
			}
			return textResult(jsonString(res)), nil, nil
		})
	}

	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports a tool failure so clients can tell it from output.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "error: " + err.Error()}},
	}
}

func jsonString(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}
