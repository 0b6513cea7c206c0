package model

import (
	"context"
	"strings"
	"sync"

	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/tui/ui"
	"google.golang.org/grpc"
)

// historyLimit is how many log entries are loaded on start.
const historyLimit = 200

// MeshAPI is the part of the control client the TUI uses.
type MeshAPI interface {
	GetStatus(ctx context.Context, opts ...grpc.CallOption) (*api.StatusView, error)
	Send(ctx context.Context, text string, opts ...grpc.CallOption) (*api.EntryView, error)
	Connect(ctx context.Context, p api.ConnectParams, opts ...grpc.CallOption) error
	Disconnect(ctx context.Context, peer string, opts ...grpc.CallOption) error
	AddMember(ctx context.Context, id string, opts ...grpc.CallOption) (string, error)
	SetGroup(ctx context.Context, name string, opts ...grpc.CallOption) (string, error)
	ListHistory(ctx context.Context, p api.HistoryParams, opts ...grpc.CallOption) ([]api.EntryView, error)
	Watch(ctx context.Context, p api.WatchParams, opts ...grpc.CallOption) (*api.WatchStream, error)
}

// ViewModel caches daemon state for the views. The watch stream feeds it
// log entries; status is re-read when the stream reports a link or roster
// change.
type ViewModel struct {
	mu sync.RWMutex

	client  MeshAPI
	status  *api.StatusView
	entries []api.EntryView
	seen    map[int64]struct{}
	Flash   *ui.FlashModel
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c MeshAPI) *ViewModel {
	return &ViewModel{
		client: c,
		seen:   make(map[int64]struct{}),
		Flash:  ui.NewFlashModel(),
	}
}

// LoadStatus fetches the node status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.GetStatus(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadHistory fetches the tail of the message log and merges it with what
// the watch stream already delivered.
func (vm *ViewModel) LoadHistory(ctx context.Context) error {
	entries, err := vm.client.ListHistory(ctx, api.HistoryParams{Limit: historyLimit})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	live := vm.entries
	vm.entries = nil
	vm.seen = make(map[int64]struct{}, len(entries)+len(live))
	for _, e := range entries {
		vm.appendLocked(e)
	}
	for _, e := range live {
		vm.appendLocked(e)
	}
	return nil
}

// appendLocked adds e unless an entry with the same log id is already held.
func (vm *ViewModel) appendLocked(e api.EntryView) {
	if e.ID != 0 {
		if _, ok := vm.seen[e.ID]; ok {
			return
		}
		vm.seen[e.ID] = struct{}{}
	}
	vm.entries = append(vm.entries, e)
}

// Apply folds one watch event into the model. It reports whether the node
// status should be reloaded.
func (vm *ViewModel) Apply(evt *api.WatchEvent) bool {
	if evt.Entry != nil {
		vm.mu.Lock()
		vm.appendLocked(*evt.Entry)
		vm.mu.Unlock()
		return false
	}
	return evt.Kind != ""
}

// Execute runs one line typed by the user: a slash command or a chat
// message. The returned action is for commands the UI handles itself.
func (vm *ViewModel) Execute(ctx context.Context, line string) (Action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ActionNone, nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := vm.client.Send(ctx, line)
		return ActionNone, err
	}

	cmd := ParseCommand(strings.TrimPrefix(line, "/"))
	switch cmd.Name {
	case "quit", "q":
		return ActionQuit, nil
	case "help", "h":
		return ActionHelp, nil
	case "add":
		if len(cmd.Args) != 1 {
			return ActionNone, ErrUsage("/add <peer-id>")
		}
		id, err := vm.client.AddMember(ctx, cmd.Args[0])
		if err == nil {
			vm.Flash.Info("member " + id + " added")
		}
		return ActionNone, err
	case "group":
		if len(cmd.Args) == 0 {
			return ActionNone, ErrUsage("/group <name>")
		}
		_, err := vm.client.SetGroup(ctx, strings.Join(cmd.Args, " "))
		return ActionNone, err
	case "connect":
		if len(cmd.Args) == 0 || len(cmd.Args) > 2 {
			return ActionNone, ErrUsage("/connect <peer-id> [verify-id]")
		}
		p := api.ConnectParams{Target: cmd.Args[0]}
		if len(cmd.Args) == 2 {
			p.Verify = cmd.Args[1]
		}
		return ActionNone, vm.client.Connect(ctx, p)
	case "disconnect":
		if len(cmd.Args) != 1 {
			return ActionNone, ErrUsage("/disconnect <peer-id>")
		}
		return ActionNone, vm.client.Disconnect(ctx, cmd.Args[0])
	default:
		return ActionNone, ErrUnknownCommand(cmd.Name)
	}
}

// Watch opens the daemon event stream.
func (vm *ViewModel) Watch(ctx context.Context) (*api.WatchStream, error) {
	return vm.client.Watch(ctx, api.WatchParams{})
}

// Status returns a snapshot of the node status.
func (vm *ViewModel) Status() *api.StatusView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Entries returns a snapshot of the message log.
func (vm *ViewModel) Entries() []api.EntryView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]api.EntryView, len(vm.entries))
	copy(out, vm.entries)
	return out
}
