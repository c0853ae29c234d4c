package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/common"
)

// registerAuthTools registers authenticate in both modes and set_credentials
// in stdio mode, where the redirect may need to be completed by hand.
func registerAuthTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	authenticateTool := mcp.NewTool("authenticate",
		mcp.WithDescription("Sign in to Google Drive. Returns the URL to open in a browser to grant drivepicker access to files it creates and files you pick."),
	)
	s.AddTool(authenticateTool, common.InstrumentedToolHandler("authenticate", "", sc, handleAuthenticate(sc)))

	if sc.Mode() == server.ModeStdio {
		setCredentialsTool := mcp.NewTool("set_credentials",
			mcp.WithDescription("Complete sign-in with the authorization code from the Google redirect URL, when the local callback page could not be reached."),
			mcp.WithString("code",
				mcp.Required(),
				mcp.Description("The 'code' query parameter of the redirect URL"),
			),
		)
		s.AddTool(setCredentialsTool, common.InstrumentedToolHandler("set_credentials", "", sc, handleSetCredentials(sc)))
	}

	return nil
}

func handleAuthenticate(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if sc.Credentials().IsAuthenticated() {
			msg := "Already authenticated with Google Drive."
			if sc.Mode() == server.ModeHTTP {
				msg += fmt.Sprintf(" To grant access to existing files, open the file picker: %s", sc.PickerURL())
			}
			return mcp.NewToolResultText(msg), nil
		}

		if sc.Mode() == server.ModeHTTP {
			return mcp.NewToolResultText(fmt.Sprintf(
				"Open this URL in your browser to sign in with Google:\n\n%s\n\n"+
					"After signing in, open %s to grant access to existing files.",
				sc.LoginURL(), sc.PickerURL())), nil
		}

		authURL, err := sc.StartLoopbackLogin()
		if err != nil {
			sc.Logger().Warn("failed to start loopback login", "error", err)
			conf := sc.Credentials().Config()
			if conf == nil {
				return errorResult(err)
			}
			return mcp.NewToolResultText(fmt.Sprintf(
				"Open this URL in your browser to grant access to Google Drive:\n\n%s\n\n"+
					"The local callback listener could not be started (%v). After approving, copy the "+
					"'code' parameter from the address bar of the page you are redirected to and call "+
					"set_credentials with it.",
				google.AuthURL(conf, sc.States().Issue()), err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Open this URL in your browser to grant access to Google Drive:\n\n%s\n\n"+
				"After you approve, credentials are stored automatically. If the redirect page does not "+
				"load, copy the 'code' parameter from its address bar and call set_credentials with it.",
			authURL)), nil
	}
}

func handleSetCredentials(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		code, err := common.RequiredStringArg(args, "code")
		if err != nil {
			return errorResult(err)
		}

		if err := sc.Credentials().ExchangeCode(ctx, code); err != nil {
			return errorResult(err)
		}

		msg := "Authentication successful."
		if path := sc.Credentials().Path(); path != "" {
			msg += fmt.Sprintf(" Credentials saved to %s.", path)
		}
		return mcp.NewToolResultText(msg), nil
	}
}
