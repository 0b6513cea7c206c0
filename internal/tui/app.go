package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/meshchat/internal/tui/keys"
	"github.com/matheus3301/meshchat/internal/tui/model"
	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/matheus3301/meshchat/internal/tui/views"
	"github.com/rivo/tview"
	"google.golang.org/grpc/status"
)

// pageChat is the root page; other pages are named after their component.
const pageChat = "Chat"

const callTimeout = 5 * time.Second

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	vm       *model.ViewModel
	registry *keys.Registry

	nodeInfo *ui.NodeInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flash    *ui.FlashBar
	prompt   *ui.Prompt
	body     *tview.Flex

	chat     *views.ChatView
	members  *views.MemberList
	help     *views.HelpView
	identity *views.IdentityView

	profile string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c model.MeshAPI, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		vm:       model.NewViewModel(c),
		registry: keys.NewRegistry(),
		nodeInfo: ui.NewNodeInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		chat:     views.NewChatView(theme),
		members:  views.NewMemberList(theme),
		help:     views.NewHelpView(theme),
		identity: views.NewIdentityView(theme),
		profile:  profileName,
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.push(a.help) },
	})
	a.registry.AddGlobal("whoami", &keys.Action{
		Rune: 'w', Key: tcell.KeyRune,
		Description: "w:who am i", Visible: true,
		Handler: a.showIdentity,
	})
	a.registry.AddGlobal("command", &keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Description: ":command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})

	a.registry.AddView(pageChat, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.chat.Composer()) },
	})
	a.registry.AddView(pageChat, "switch", &keys.Action{
		Key: tcell.KeyTab,
		Description: "tab:members", Visible: true,
		Handler: a.toggleFocus,
	})
	a.registry.AddView(pageChat, "connect", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:connect", Visible: true,
		Handler: func() { a.onSelectedMember("/connect ") },
	})
	a.registry.AddView(pageChat, "disconnect", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:disconnect", Visible: true,
		Handler: func() { a.onSelectedMember("/disconnect ") },
	})
	a.registry.AddView(pageChat, "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageChat, "clear", &keys.Action{
		Rune: '0', Key: tcell.KeyRune,
		Description: "0:clear filter", Visible: false,
		Handler: func() { a.members.ClearFilter() },
	})
}

func (a *App) setupCallbacks() {
	a.chat.SetOnSubmit(func(text string) {
		a.execute(text)
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.members.SetFilter(text)
		case ui.PromptCommand:
			a.execute("/" + text)
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(append([]string{a.profile}, stack...))
	})
}

func (a *App) setupLayout() {
	logo := ui.NewLogo(a.theme)

	header := tview.NewFlex().
		AddItem(a.nodeInfo, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(logo, 16, 0, false)

	chatPage := tview.NewFlex().
		AddItem(a.chat, 0, 3, true).
		AddItem(a.members, 32, 0, false)

	a.pages.AddPage(pageChat, chatPage, true, false)
	a.pages.AddPage(a.help.Name(), a.help, true, false)
	a.pages.AddPage(a.identity.Name(), a.identity, true, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flash, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.pages.Reset(pageChat)
	a.menu.Update(a.chat.Hints())

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		current := a.pages.Current()

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if focused == a.chat.Composer() && event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.chat.Messages())
			return nil
		}
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if event.Key() == tcell.KeyEscape && a.pages.Depth() > 1 {
			a.pop()
			return nil
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

// push shows a page on top of the stack and its hints in the menu.
func (a *App) push(c ui.Component) {
	if a.pages.Current() == c.Name() {
		return
	}
	a.pages.Push(c.Name())
	a.menu.Update(c.Hints())
	a.app.SetFocus(a.pages)
}

func (a *App) pop() {
	a.pages.Pop()
	if a.pages.Current() == pageChat {
		a.menu.Update(a.chat.Hints())
		a.app.SetFocus(a.chat.Messages())
	}
}

func (a *App) toggleFocus() {
	if a.app.GetFocus() == a.members.Table {
		a.menu.Update(a.chat.Hints())
		a.app.SetFocus(a.chat.Messages())
		return
	}
	a.menu.Update(a.members.Hints())
	a.app.SetFocus(a.members.Table)
}

func (a *App) showIdentity() {
	id := ""
	if st := a.vm.Status(); st != nil {
		id = st.PeerID
	}
	a.identity.Show(id)
	a.push(a.identity)
}

func (a *App) onSelectedMember(command string) {
	id := a.members.SelectedMember()
	if id == "" {
		a.vm.Flash.Warn("select a member first (tab)")
		a.flash.Update(a.vm.Flash.GetMessage())
		return
	}
	a.execute(command + id)
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.body.RemoveItem(a.crumbs)
	a.body.RemoveItem(a.flash)
	a.body.AddItem(a.prompt, 3, 0, false)
	a.body.AddItem(a.crumbs, 1, 0, false)
	a.body.AddItem(a.flash, 1, 0, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.RemoveItem(a.prompt)
	a.app.SetFocus(a.chat.Messages())
}

// execute runs a user line off the UI goroutine and reports failures in the
// flash bar.
func (a *App) execute(line string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()

		action, err := a.vm.Execute(ctx, line)
		if err != nil {
			a.vm.Flash.Err(errors.New(errorText(err)))
		}
		a.app.QueueUpdateDraw(func() {
			switch action {
			case model.ActionQuit:
				a.Stop()
				return
			case model.ActionHelp:
				a.push(a.help)
			}
			a.flash.Update(a.vm.Flash.GetMessage())
		})
	}()
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.refresh()
		a.watch()
	}()
	go a.startRefreshLoop()

	return a.app.Run()
}

// refresh reloads status and history and redraws everything.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()

	if err := a.vm.LoadStatus(ctx); err != nil {
		a.vm.Flash.Err(errors.New(errorText(err)))
	}
	if err := a.vm.LoadHistory(ctx); err != nil {
		a.vm.Flash.Err(errors.New(errorText(err)))
	}
	a.app.QueueUpdateDraw(func() {
		a.renderStatus()
		a.chat.Update(a.vm.Entries())
		a.flash.Update(a.vm.Flash.GetMessage())
	})
}

// watch follows the daemon event stream until the app stops, reopening it
// after errors.
func (a *App) watch() {
	for a.ctx.Err() == nil {
		stream, err := a.vm.Watch(a.ctx)
		if err == nil {
			for {
				evt, rerr := stream.Recv()
				if rerr != nil {
					err = rerr
					break
				}
				if a.vm.Apply(evt) {
					a.reloadStatus()
					continue
				}
				a.app.QueueUpdateDraw(func() {
					a.chat.Update(a.vm.Entries())
				})
			}
		}
		if a.ctx.Err() != nil {
			return
		}
		a.vm.Flash.Warn("event stream lost: " + errorText(err))
		a.app.QueueUpdateDraw(func() {
			a.flash.Update(a.vm.Flash.GetMessage())
		})

		select {
		case <-time.After(2 * time.Second):
		case <-a.ctx.Done():
			return
		}
		a.refresh()
	}
}

func (a *App) reloadStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		return
	}
	a.app.QueueUpdateDraw(a.renderStatus)
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.reloadStatus()
			a.app.QueueUpdateDraw(func() {
				a.flash.Update(a.vm.Flash.GetMessage())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// renderStatus must run on the UI goroutine.
func (a *App) renderStatus() {
	st := a.vm.Status()
	if st == nil {
		return
	}
	a.nodeInfo.Update(&ui.NodeData{
		Profile: st.Profile,
		PeerID:  st.PeerID,
		State:   st.State,
		Group:   st.Group,
		Links:   len(st.Peers),
		Members: len(st.Members),
		Uptime:  time.Duration(st.UptimeMs) * time.Millisecond,
	})
	a.members.Update(st.Members)
	a.chat.SetGroup(st.Group)
}

// errorText strips the gRPC envelope from err.
func errorText(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
