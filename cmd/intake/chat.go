package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the intake flows in the terminal",
	Long: `Starts a local conversation. Type a reply, the number of an option, or one
of the commands:

  /image <path>   send a file as an image upload
  /voice <path>   send a file as a voice note
  /quit           leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		logger := newLogger(cfg)

		st, err := build(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		interactive := term.IsTerminal(int(os.Stdout.Fd()))
		renderer, err := tui.NewRenderer(!interactive)
		if err != nil {
			return err
		}
		if interactive {
			tui.PrintBanner(os.Stdout)
		}

		out := &terminalSender{w: os.Stdout, renderer: renderer}
		eng, err := st.engine(out)
		if err != nil {
			return err
		}
		return chat(cmd.Context(), eng, out, os.Stdin, user)
	},
}

// terminalSender prints replies and remembers the options last offered.
type terminalSender struct {
	w        io.Writer
	renderer *tui.Renderer

	mu      sync.Mutex
	options []domain.Option
}

func (t *terminalSender) Send(_ context.Context, _ string, r domain.Renderable) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(r.Options) > 0 {
		t.options = r.Options
	}
	_, err := fmt.Fprintln(t.w, t.renderer.Render(r))
	return err
}

// option resolves a typed number to the matching option ID.
func (t *terminalSender) option(line string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.options) {
		return "", false
	}
	return t.options[n-1].ID, true
}

type router interface {
	Route(ctx context.Context, msg domain.Message) error
}

func chat(ctx context.Context, r router, out *terminalSender, in io.Reader, user string) error {
	// A greeting opens the menu.
	if err := r.Route(ctx, newMessage(user, domain.ModalityText, "hi")); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out.w, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, quit, err := parseLine(out, user, line)
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out.w, ">>> %v\n", err)
			continue
		}
		if err := r.Route(ctx, msg); err != nil {
			fmt.Fprintf(out.w, ">>> %v\n", err)
		}
	}
}

func parseLine(out *terminalSender, user, line string) (domain.Message, bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return domain.Message{}, true, nil
	case "/image", "/voice":
		data, err := os.ReadFile(strings.TrimSpace(arg))
		if err != nil {
			return domain.Message{}, false, err
		}
		modality := domain.ModalityImage
		if cmd == "/voice" {
			modality = domain.ModalityVoice
		}
		msg := newMessage(user, modality, "")
		msg.Media = &domain.Media{ID: msg.ID, MIMEType: http.DetectContentType(data), Data: data}
		return msg, false, nil
	}
	if id, ok := out.option(line); ok {
		return newMessage(user, domain.ModalityButton, id), false, nil
	}
	return newMessage(user, domain.ModalityText, line), false, nil
}

func newMessage(user string, modality domain.Modality, payload string) domain.Message {
	return domain.Message{
		ID:         uuid.NewString(),
		UserKey:    user,
		Modality:   modality,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}

func init() {
	chatCmd.Flags().String("user", "local", "User key of the conversation")
	rootCmd.AddCommand(chatCmd)
}
