package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/jrsteele09/go-entra-query/sessions"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	mainPage   = "main"
	noticePage = "notice"

	loginLabel     = "Login with Entra ID"
	tokenInfoLabel = "Show Token Info"
	queryLabel     = "Query Semantic Model"
	logoutLabel    = "Logout"

	helpText = "[gray]Tab: next  Ctrl+Enter: run query  q: quit (outside the query box)[-]"
)

// Actions are what the buttons trigger.
type Actions interface {
	Session() sessions.Session
	Subscribe(fn func(sessions.Session))
	Login(ctx context.Context) error
	ShowTokenInfo(ctx context.Context) (string, error)
	Query(ctx context.Context, queryText string) (string, error)
	LastTable() string
	Logout(ctx context.Context) <-chan error
}

// UI is the terminal front end. It renders the session and forwards button
// presses to Actions off the UI goroutine.
type UI struct {
	app     *tview.Application
	actions Actions
	ctx     context.Context

	pages      *tview.Pages
	welcome    *tview.TextView
	buttonBar  *tview.Flex
	body       *tview.Flex
	queryInput *tview.TextArea
	output     *tview.TextView
	status     *tview.TextView

	loginButton     *tview.Button
	tokenInfoButton *tview.Button
	queryButton     *tview.Button
	logoutButton    *tview.Button

	mu          sync.Mutex
	started     bool
	focusables  []tview.Primitive
	savedFocus  tview.Primitive
	noticeShown bool
}

// New builds the UI for actions. Session changes re-render it.
func New(ctx context.Context, appName string, actions Actions) (*UI, error) {
	if actions == nil {
		return nil, errors.New("[ui New] actions are required")
	}

	u := &UI{
		app:        tview.NewApplication(),
		actions:    actions,
		ctx:        ctx,
		pages:      tview.NewPages(),
		welcome:    tview.NewTextView().SetDynamicColors(true),
		buttonBar:  tview.NewFlex().SetDirection(tview.FlexColumn),
		body:       tview.NewFlex().SetDirection(tview.FlexRow),
		queryInput: tview.NewTextArea(),
		output:     tview.NewTextView().SetWrap(false).SetScrollable(true),
		status:     tview.NewTextView().SetDynamicColors(true),
	}

	u.loginButton = tview.NewButton(loginLabel).SetSelectedFunc(u.login)
	u.tokenInfoButton = tview.NewButton(tokenInfoLabel).SetSelectedFunc(u.showTokenInfo)
	u.queryButton = tview.NewButton(queryLabel).SetSelectedFunc(u.runQuery)
	u.logoutButton = tview.NewButton(logoutLabel).SetSelectedFunc(u.logout)

	u.queryInput.SetPlaceholder("EVALUATE ...")
	u.queryInput.SetBorder(true).SetTitle("DAX query")
	u.output.SetBorder(true).SetTitle("Result")
	u.status.SetText(helpText)

	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText(appName)
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(title, 1, 0, false).
		AddItem(u.welcome, 1, 0, false).
		AddItem(u.buttonBar, 1, 0, true).
		AddItem(u.body, 0, 1, false).
		AddItem(u.status, 1, 0, false)
	u.pages.AddPage(mainPage, root, true, true)

	u.app.SetRoot(u.pages, true)
	u.app.SetInputCapture(u.handleKey)

	actions.Subscribe(func(s sessions.Session) {
		u.queueUpdate(func() { u.render(s) })
	})
	u.render(actions.Session())
	return u, nil
}

// Run blocks until the user quits or ctx is done.
func (u *UI) Run() error {
	go func() {
		<-u.ctx.Done()
		u.app.Stop()
	}()

	u.mu.Lock()
	u.started = true
	u.mu.Unlock()
	return u.app.Run()
}

// Notify shows message in a modal. It satisfies sessions.Notifier.
func (u *UI) Notify(message string) {
	u.queueUpdate(func() { u.showNotice(message) })
}

// render shows the controls that belong to the session: Login while signed
// out, everything else while signed in.
func (u *UI) render(s sessions.Session) {
	u.buttonBar.Clear()
	u.body.Clear()

	switch {
	case s.IsLoggedIn:
		u.welcome.SetText(fmt.Sprintf("Welcome, %s!", tview.Escape(s.DisplayName)))
		u.buttonBar.
			AddItem(u.tokenInfoButton, 0, 1, false).
			AddItem(nil, 1, 0, false).
			AddItem(u.queryButton, 0, 1, false).
			AddItem(nil, 1, 0, false).
			AddItem(u.logoutButton, 0, 1, false)
		u.body.
			AddItem(u.queryInput, 7, 0, false).
			AddItem(u.output, 0, 1, false)
		u.output.SetText(u.actions.LastTable())
		u.setFocusables(u.tokenInfoButton, u.queryButton, u.logoutButton, u.queryInput, u.output)
	case s.State == sessions.Transitioning:
		u.welcome.SetText("[yellow]Signing in, complete the sign-in in your browser...[-]")
		u.buttonBar.AddItem(u.loginButton, 0, 1, false)
		u.setFocusables(u.loginButton)
	default:
		u.welcome.SetText("")
		u.buttonBar.AddItem(u.loginButton, 0, 1, false)
		u.setFocusables(u.loginButton)
	}
}

// setFocusables records the Tab order and moves focus into it when the
// focused control was just removed.
func (u *UI) setFocusables(items ...tview.Primitive) {
	u.focusables = items
	current := u.app.GetFocus()
	for _, p := range items {
		if p == current {
			return
		}
	}
	if !u.noticeShown {
		u.app.SetFocus(items[0])
	}
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if u.noticeShown {
		return event
	}

	switch event.Key() {
	case tcell.KeyTab:
		u.cycleFocus(1)
		return nil
	case tcell.KeyBacktab:
		u.cycleFocus(-1)
		return nil
	}

	if u.app.GetFocus() == u.queryInput {
		if event.Key() == tcell.KeyEnter && event.Modifiers()&tcell.ModCtrl != 0 {
			u.runQuery()
			return nil
		}
		return event
	}

	switch event.Rune() {
	case 'q', 'Q':
		u.app.Stop()
		return nil
	}
	return event
}

func (u *UI) cycleFocus(step int) {
	if len(u.focusables) == 0 {
		return
	}
	current := u.app.GetFocus()
	next := 0
	for i, p := range u.focusables {
		if p == current {
			next = (i + step + len(u.focusables)) % len(u.focusables)
			break
		}
	}
	u.app.SetFocus(u.focusables[next])
}

func (u *UI) showNotice(message string) {
	u.mu.Lock()
	u.savedFocus = u.app.GetFocus()
	u.mu.Unlock()

	u.noticeShown = true
	modal := tview.NewModal().
		SetText(tview.Escape(message)).
		AddButtons([]string{"OK"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		u.hideNotice()
	})
	u.pages.AddAndSwitchToPage(noticePage, modal, true)
}

func (u *UI) hideNotice() {
	u.noticeShown = false
	u.pages.RemovePage(noticePage)
	u.pages.SwitchToPage(mainPage)

	u.mu.Lock()
	focus := u.savedFocus
	u.savedFocus = nil
	u.mu.Unlock()
	if focus != nil {
		u.app.SetFocus(focus)
	}
}

func (u *UI) setStatus(text string) {
	u.status.SetText(text)
}

// queueUpdate applies fn directly before the application runs, and on the
// UI goroutine afterwards.
func (u *UI) queueUpdate(fn func()) {
	u.mu.Lock()
	started := u.started
	u.mu.Unlock()
	if !started {
		fn()
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().Interface("panic", r).Msg("UI update dropped")
			}
		}()
		u.app.QueueUpdateDraw(fn)
	}()
}

// background runs an action off the UI goroutine.
func (u *UI) background(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("action", name).Msg("Action panicked")
				u.queueUpdate(func() { u.setStatus(fmt.Sprintf("[red]%s failed unexpectedly[-]", name)) })
			}
		}()
		fn(u.ctx)
	}()
}

func (u *UI) login() {
	u.background("login", func(ctx context.Context) {
		// Failures reach the user through Notify.
		_ = u.actions.Login(ctx)
	})
}

func (u *UI) showTokenInfo() {
	u.background("token info", func(ctx context.Context) {
		info, err := u.actions.ShowTokenInfo(ctx)
		if err != nil {
			u.queueUpdate(func() { u.setStatus("[red]Could not acquire a token, see the log for details[-]") })
			return
		}
		u.Notify(info)
	})
}

func (u *UI) runQuery() {
	text := u.queryInput.GetText()
	u.setStatus("[yellow]Running query...[-]")
	u.background("query", func(ctx context.Context) {
		table, err := u.actions.Query(ctx, text)
		u.queueUpdate(func() {
			if err != nil {
				u.setStatus("[red]Query failed, see the log for details[-]")
				return
			}
			u.output.SetText(table).ScrollToBeginning()
			u.setStatus(helpText)
		})
	})
}

func (u *UI) logout() {
	u.background("logout", func(ctx context.Context) {
		// Provider failures are logged by the controller and do not
		// change the local session.
		for range u.actions.Logout(ctx) {
		}
	})
}
