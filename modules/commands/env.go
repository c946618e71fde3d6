package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"panetree/modules/core/pane"
	"panetree/modules/platform/config"
	"panetree/modules/platform/control"
	"panetree/modules/platform/logger"
	"panetree/modules/platform/tmux"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// controller is what every pane-managing command needs: the multiplexer, the
// originating pane and the lifecycle manager bound to them
type controller struct {
	settings *config.Settings
	mux      pane.Multiplexer
	origin   string
	manager  *pane.Manager
}

// newController connects to tmux and resolves the originating pane. origin
// overrides the pane this command runs in.
func newController(ctx context.Context, origin string) (*controller, error) {
	mux, err := tmux.Detect()
	if err != nil {
		return nil, err
	}
	return newControllerWith(ctx, mux, origin)
}

func newControllerWith(ctx context.Context, mux pane.Multiplexer, origin string) (*controller, error) {
	if origin == "" {
		current, err := mux.CurrentPane(ctx)
		if err != nil {
			return nil, err
		}
		origin = current
	}

	s := settings()
	return &controller{
		settings: s,
		mux:      mux,
		origin:   origin,
		manager: &pane.Manager{
			Mux:          mux,
			Store:        pane.IdentityStore{Dir: s.ResolveStateDir()},
			SplitPercent: s.SplitPercent,
			SettleDelay:  s.SettleDelay(),
			Logger:       logger.GetGlobalLogger(),
		},
	}, nil
}

// socketPath is where the view opened for this origin listens
func (c *controller) socketPath() string {
	return control.SocketPath(c.settings.ResolveSocketDir(), c.origin)
}
