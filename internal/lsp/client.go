package lsp

import (
	"context"
	"fmt"
	"sync"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

const methodWindowShowDocument = "window/showDocument"

// client talks back to the editor. Messages sent before the connection is
// up only reach the server log.
type client struct {
	lock sync.RWMutex
	conn jsonrpc2.Conn
}

var _ fmterr.Output = &client{}
var _ fmterr.Notifier = &client{}

func (c *client) setConn(conn jsonrpc2.Conn) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.conn = conn
}

func (c *client) getConn() jsonrpc2.Conn {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.conn
}

func (c *client) notify(ctx context.Context, method string, params interface{}) error {
	conn := c.getConn()
	if conn == nil {
		return fmt.Errorf("%s: not connected", method)
	}
	return conn.Notify(ctx, method, params)
}

func (c *client) call(ctx context.Context, method string, params, result interface{}) error {
	conn := c.getConn()
	if conn == nil {
		return fmt.Errorf("%s: not connected", method)
	}

	// a closed connection never answers
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := conn.Call(ctx, method, params, result)
	return err
}

func (c *client) AppendLine(ctx context.Context, line string) {
	err := c.notify(ctx, protocol.MethodWindowLogMessage, &protocol.LogMessageParams{
		Type:    protocol.MessageTypeInfo,
		Message: line,
	})
	if err != nil {
		log.WithError(ctx, err).Warn(line)
	}
}

// Show has no LSP equivalent. Clients list window/logMessage in their own
// output panel.
func (c *client) Show(context.Context) {}

func (c *client) Clear(context.Context) {}

func (c *client) ShowError(ctx context.Context, message string, actions ...string) (string, error) {
	if len(actions) == 0 {
		return "", c.notify(ctx, protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
			Type:    protocol.MessageTypeError,
			Message: message,
		})
	}

	params := &protocol.ShowMessageRequestParams{
		Type:    protocol.MessageTypeError,
		Message: message,
	}
	for _, action := range actions {
		params.Actions = append(params.Actions, protocol.MessageActionItem{Title: action})
	}

	var chosen *protocol.MessageActionItem
	if err := c.call(ctx, protocol.MethodWindowShowMessageRequest, params, &chosen); err != nil {
		return "", err
	}
	if chosen == nil {
		return "", nil
	}
	return chosen.Title, nil
}

func (c *client) OpenURL(ctx context.Context, url string) error {
	result := &protocol.ShowDocumentResult{}
	if err := c.call(ctx, methodWindowShowDocument, &protocol.ShowDocumentParams{
		URI:      protocol.URI(url),
		External: true,
	}, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("client did not open %s", url)
	}
	return nil
}

func (c *client) OpenSettings(ctx context.Context, query string) error {
	return c.notify(ctx, protocol.MethodWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeInfo,
		Message: fmt.Sprintf("Configure the %q section in your editor's language server settings", query),
	})
}

func (c *client) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI, version int32, diagnostics []protocol.Diagnostic) error {
	if diagnostics == nil {
		// an empty list clears the client's diagnostics
		diagnostics = []protocol.Diagnostic{}
	}
	return c.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(version),
		Diagnostics: diagnostics,
	})
}
