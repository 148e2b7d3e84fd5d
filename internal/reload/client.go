package reload

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ConnectTimeout bounds the initial connection attempt of Listen.
const ConnectTimeout = 15 * time.Second

// ClientOptions configure Listen.
type ClientOptions struct {
	InsecureSkipVerify bool
	// Connected, if set, is called once the connection is established.
	Connected func()
}

// Listen connects to a reload server at rawURL and calls handle for every
// reload event until ctx is done. It returns an error if the initial
// connection fails.
func Listen(ctx context.Context, rawURL string, opts ClientOptions, handle func(Event)) error {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("URL %q must include a scheme and a host", rawURL)
	}

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket("/", sockOpts)
	defer func() {
		logger.Debug("Disconnecting reload client.")
		io.Disconnect()
	}()

	// Only the first outcome is read; later ones must not block the
	// socket's event loop.
	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("🔌 Connected to reload server.", "sid", io.Id())
		notify(connectChan, nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		notify(connectChan, connectErr(errs))
	})
	io.On(types.EventName(EventName), func(data ...any) {
		ev, ok := decodeEvent(data)
		if !ok {
			logger.Warn("Ignoring malformed reload event.", "data", data)
			return
		}
		handle(ev)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ConnectTimeout):
		return fmt.Errorf("timed out after %s waiting for socket.io connection", ConnectTimeout)
	}

	if opts.Connected != nil {
		opts.Connected()
	}
	<-ctx.Done()
	return nil
}

// notify delivers err unless an outcome is already pending.
func notify(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// connectErr turns the arguments of a connect_error event into an error.
func connectErr(args []any) error {
	if len(args) == 0 || args[0] == nil {
		return errors.New("connection refused without a reason")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}

func decodeEvent(data []any) (Event, bool) {
	if len(data) == 0 {
		return Event{}, false
	}
	m, ok := data[0].(map[string]any)
	if !ok {
		return Event{}, false
	}
	kind, ok := m["type"].(string)
	if !ok {
		return Event{}, false
	}
	return Event{Type: kind}, true
}
