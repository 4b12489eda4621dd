// File: cmd/chat/session.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/export"
	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/threadstore"
	"github.com/iyunix/oni-chat/internal/turn"
)

const helpText = `Commands:
  /new                 start a new chat
  /list                list chats (* marks the active one)
  /select <n|id>       switch to a chat by list number or id
  /delete [n|id]       delete a chat (default: the active one)
  /export [md|html] [file]
                       write the active chat transcript
  /engine              show the local engine state
  /reset               retry a failed local engine load
  /help                show this help
  /quit                exit
Anything else is sent to the assistant.`

// session is the terminal chat: it owns the local thread store and routes
// typed lines to commands or chat turns.
type session struct {
	store  *threadstore.Store
	turns  *turn.Controller
	local  *ai.LocalProvider // nil when talking to the relay
	out    io.Writer
	errOut io.Writer
}

// handle runs one input line. It returns false when the user asked to quit.
func (s *session) handle(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return true, nil
	}
	if !strings.HasPrefix(input, "/") {
		return true, s.send(ctx, input)
	}

	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return false, nil
	case "/help":
		fmt.Fprintln(s.out, helpText)
	case "/new":
		t, err := s.store.CreateThread(ctx)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "Started %s\n", t.ID)
	case "/list":
		s.list()
	case "/select":
		if len(args) != 1 {
			return true, errors.New("usage: /select <n|id>")
		}
		id, err := s.resolve(args[0])
		if err != nil {
			return true, err
		}
		t, err := s.store.SelectThread(id)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "Switched to %q\n", t.Title)
		s.replay(ctx)
	case "/delete":
		id := s.store.ActiveID()
		if len(args) == 1 {
			var err error
			if id, err = s.resolve(args[0]); err != nil {
				return true, err
			}
		}
		if err := s.store.DeleteThread(ctx, id); err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "Deleted %s, active is now %s\n", id, s.store.ActiveID())
	case "/export":
		return true, s.export(args)
	case "/engine":
		if s.local == nil {
			fmt.Fprintln(s.out, "Using the remote relay")
		} else {
			fmt.Fprintf(s.out, "Local engine: %s\n", s.local.State())
		}
	case "/reset":
		if s.local == nil {
			return true, errors.New("no local engine in use")
		}
		s.local.Reset()
		fmt.Fprintln(s.out, "Local engine reset")
	default:
		return true, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return true, nil
}

func (s *session) send(ctx context.Context, text string) error {
	id := s.store.ActiveID()
	fmt.Fprint(s.out, "oni> ")
	streamed := false
	reply, err := s.turns.Send(ctx, s.store, id, text, func(delta, _ string) {
		streamed = true
		fmt.Fprint(s.out, delta)
	})
	if err != nil {
		fmt.Fprintln(s.out)
		return describeTurnError(err)
	}
	if !streamed {
		fmt.Fprint(s.out, reply.Content)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *session) list() {
	for i, t := range s.store.ListThreads() {
		marker := " "
		if t.Active {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %2d. %-30s %3d msgs  %s\n",
			marker, i+1, t.Title, t.MessageCount, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// resolve accepts a 1-based list position or a thread id.
func (s *session) resolve(arg string) (string, error) {
	list := s.store.ListThreads()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return "", fmt.Errorf("no chat number %d", n)
		}
		return list[n-1].ID, nil
	}
	for _, t := range list {
		if t.ID == arg {
			return arg, nil
		}
	}
	return "", threadstore.ErrNotFound
}

func (s *session) replay(ctx context.Context) {
	msgs, err := s.store.Messages(ctx, s.store.ActiveID())
	if err != nil {
		return
	}
	for _, m := range msgs {
		who := "you"
		if m.Role != domain.RoleUser {
			who = "oni"
		}
		fmt.Fprintf(s.out, "%s> %s\n", who, m.Content)
	}
}

func (s *session) export(args []string) error {
	format := export.FormatMarkdown
	var path string
	if len(args) > 0 {
		f, err := export.ParseFormat(args[0])
		if err != nil {
			return err
		}
		format = f
	}
	if len(args) > 1 {
		path = args[1]
	}

	thread, err := s.store.Active()
	if err != nil {
		return err
	}
	out, err := export.Render(thread, format)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprint(s.out, out)
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

// describeTurnError turns failures into something a person can act on.
func describeTurnError(err error) error {
	var aiErr *ai.AIError
	if errors.As(err, &aiErr) {
		switch aiErr.Type {
		case ai.ErrTypeUnsupported:
			return fmt.Errorf("local engine unavailable on this machine: %s", aiErr.Message)
		case ai.ErrTypeUpstream:
			return fmt.Errorf("relay answered %d: %s", aiErr.Code, aiErr.Detail)
		case ai.ErrTypeTimeout:
			return errors.New("the assistant took too long to answer")
		}
	}
	if errors.Is(err, turn.ErrTurnInProgress) {
		return errors.New("still waiting for the previous answer")
	}
	return err
}
