package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"chatrelay/internal/client"
	"chatrelay/internal/log"
	"chatrelay/internal/proto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		room      string
	)

	cmd := &cobra.Command{
		Use:          "chat",
		Short:        "Terminal client for the chat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), serverURL, room)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "relay base URL")
	cmd.Flags().StringVar(&room, "room", "general", "room to join")

	return cmd
}

func run(parent context.Context, serverURL, room string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New("warn")
	wsURL := strings.Replace(serverURL, "http", "ws", 1) + "/ws"

	session := client.NewSession(wsURL, client.NewHTTPHistory(serverURL), client.NewHTTPUploader(serverURL), logger)
	session.OnJoined = func(roomID string) {
		fmt.Printf("* joined room (id %s)\n", roomID)
	}
	session.OnRecord = printRecord

	if err := session.Join(ctx, room); err != nil {
		return fmt.Errorf("join %s: %w", room, err)
	}
	defer session.Leave()

	fmt.Printf("Connected to %s, room %q.\n", serverURL, room)
	fmt.Println("Type to send. Commands: /file <path>, /files, /rm <n>, /join <room>, /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := handleLine(ctx, session, line); done {
				return nil
			}
		}
	}
}

// handleLine dispatches one stdin line; returns true on /quit.
func handleLine(ctx context.Context, session *client.Session, line string) bool {
	text := strings.TrimSpace(line)
	if text == "" {
		return false
	}

	switch {
	case text == "/quit":
		return true

	case strings.HasPrefix(text, "/file "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/file"))
		att, err := client.FileAttachment(path)
		if err != nil {
			fmt.Printf("! %v\n", err)
			return false
		}
		if err := session.SelectFiles(append(session.PendingFiles(), att)); err != nil {
			fmt.Printf("! %v\n", err)
			return false
		}
		fmt.Printf("* staged %s (%d bytes)\n", att.Name, att.Size)

	case text == "/files":
		pending := session.PendingFiles()
		if len(pending) == 0 {
			fmt.Println("* no files staged")
			return false
		}
		for i, att := range pending {
			fmt.Printf("  %d: %s (%d bytes)\n", i, att.Name, att.Size)
		}

	case strings.HasPrefix(text, "/rm "):
		i, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "/rm")))
		if err != nil {
			fmt.Println("! usage: /rm <n>")
			return false
		}
		session.RemoveFile(i)

	case strings.HasPrefix(text, "/join "):
		room := strings.TrimSpace(strings.TrimPrefix(text, "/join"))
		if err := session.Join(ctx, room); err != nil {
			fmt.Printf("! %v\n", err)
		}

	default:
		if err := session.Send(ctx, text); err != nil {
			fmt.Printf("! %v\n", err)
		}
	}

	return false
}

func printRecord(m proto.MessageRecord) {
	stamp := m.CreatedAt.Local().Format("15:04:05")
	if m.Type == proto.TypeFile && m.FileName != nil {
		fmt.Printf("[%s] file %s (%d bytes): %s\n", stamp, *m.FileName, derefSize(m.Size), m.Content)
		return
	}
	fmt.Printf("[%s] %s\n", stamp, m.Content)
}

func derefSize(size *int64) int64 {
	if size == nil {
		return 0
	}
	return *size
}
