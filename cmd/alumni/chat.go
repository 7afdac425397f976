package main

import (
	"alumni-chat/domain/search"
	"alumni-chat/repositories"
	"alumni-chat/services"
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gookit/color"
)

const chatHelp = `/edit <id> <text>   /delete <id>   /search <terms> [--limit n]   /reload   /quit`

// runChat opens a conversation and reads lines from in until /quit or EOF.
// Plain lines are sent as messages.
func (a *app) runChat(ctx context.Context, peerID string, in *bufio.Scanner) error {
	chat, err := a.chatSession(peerID)
	if err != nil {
		return err
	}
	if err := chat.Open(ctx); err != nil {
		return err
	}
	viewerID, _ := a.session.CurrentUserID()

	var mu sync.Mutex
	shown := len(chat.Messages())
	redraw := func() {
		mu.Lock()
		defer mu.Unlock()
		shown = len(chat.Messages())
		a.out.timeline(chat.Timeline(), viewerID, a.loc, chat)
	}
	redraw()
	fmt.Fprintln(a.out.w, color.FgGray.Render(chatHelp))

	live, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.follow(live, chat, func() {
		mu.Lock()
		changed := len(chat.Messages()) != shown
		mu.Unlock()
		if changed {
			redraw()
		}
	})

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		if err := a.chatCommand(ctx, chat, line); err != nil {
			fmt.Fprintln(a.out.w, color.FgRed.Render(err.Error()))
			continue
		}
		redraw()
	}
	return in.Err()
}

func (a *app) chatCommand(ctx context.Context, chat *services.ChatSession, line string) error {
	if !strings.HasPrefix(line, "/") {
		chat.SetDraft(line)
		return chat.Send(ctx)
	}
	name, args, _ := strings.Cut(line, " ")
	switch name {
	case "/edit":
		id, text, _ := strings.Cut(strings.TrimSpace(args), " ")
		if err := chat.Select(id); err != nil {
			return err
		}
		return chat.EditSelected(ctx, text)
	case "/delete":
		if err := chat.Select(strings.TrimSpace(args)); err != nil {
			return err
		}
		return chat.DeleteSelected(ctx)
	case "/search":
		q := search.NewSearchQuery(line)
		found, err := chat.Search(ctx, q.Terms, q.Limit)
		if err != nil {
			return err
		}
		a.out.messages(found, a.loc)
		return nil
	case "/reload":
		return chat.Reload(ctx)
	default:
		return fmt.Errorf("unknown command %s, try: %s", name, chatHelp)
	}
}

// follow reloads the conversation whenever the server reports a change.
func (a *app) follow(ctx context.Context, chat *services.ChatSession, changed func()) {
	snapshots, err := a.store.Subscribe(ctx, repositories.ConversationCollection(chat.ConversationID()))
	if err != nil {
		a.log.Warn("Live updates unavailable", "error", err)
		return
	}
	for range snapshots {
		if err := chat.Reload(ctx); err != nil {
			a.log.Debug("Reload after change failed", "error", err)
			continue
		}
		changed()
	}
}
