// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command weather-chat is an interactive client for an A2A agent.
//
// Each line read from standard input is sent as one turn. The progress
// notes, the answer and, when the agent produced nothing usable, the
// diagnostic are printed. "/reset" starts a new conversation and "/quit"
// exits.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/google/uuid"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/auth"
	"github.com/go-a2a/taskbridge/client"
)

var (
	app = kingpin.New("weather-chat", "Chat with an A2A agent")

	agentURL    = app.Flag("url", "Base URL of the agent").Default("http://localhost:10000").URL()
	syncMode    = app.Flag("sync", "Use blocking message/send instead of streaming").Bool()
	webhookAddr = app.Flag("webhook", "Listen address of a push notification receiver, e.g. localhost:5050").String()
	verifyPush  = app.Flag("verify-push", "Verify push notification JWTs against the agent key set").Bool()
	timeout     = app.Flag("timeout", "Per-request timeout").Default("60s").Duration()
	debug       = app.Flag("debug", "Log protocol traffic").Bool()
)

var (
	noteColor  = color.New(color.FgHiBlack)
	agentColor = color.New(color.FgGreen, color.Bold)
	askColor   = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed)
	pushColor  = color.New(color.FgCyan)
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		errColor.Fprintf(os.Stderr, "weather-chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := strings.TrimSuffix((*agentURL).String(), "/")
	card, err := client.NewCardResolver(base, nil).Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve agent card: %w", err)
	}
	c, err := client.NewClientFromCard(card,
		client.WithTimeout(*timeout),
		client.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	opts := []client.ConversationOption{client.WithConversationLogger(logger)}
	if *syncMode {
		opts = append(opts, client.WithStreaming(false))
	}
	if *webhookAddr != "" {
		push, shutdown, err := startWebhook(ctx, base, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		opts = append(opts, client.WithPushNotification(push))
	}
	conv := client.NewConversation(c, opts...)

	fmt.Printf("Connected to %s %s (streaming: %t)\n", card.Name, card.Version, card.Capabilities.Streaming && !*syncMode)
	fmt.Println(`Type a question, "/reset" for a new conversation or "/quit" to exit.`)

	return chat(ctx, conv, os.Stdin)
}

func chat(ctx context.Context, conv *client.Conversation, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			conv.Reset()
			noteColor.Println("Started a new conversation.")
			continue
		}

		out, err := conv.Send(ctx, line)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		render(out)
	}
}

func render(out client.Outcome) {
	for _, note := range out.Notes {
		noteColor.Printf("  … %s\n", note)
	}

	switch {
	case out.Diagnostic != nil:
		errColor.Println("The agent returned no answer. Last event:")
		errColor.Println(out.Diagnostic.String())
	case out.Paused:
		askColor.Println(out.Response)
	case out.State == client.StateFailed:
		errColor.Println(out.Response)
	default:
		agentColor.Println(out.Response)
	}
}

// startWebhook serves a push receiver on the --webhook address and returns the
// config to register with the agent.
func startWebhook(ctx context.Context, agentBase string, logger *slog.Logger) (*a2a.PushNotificationConfig, func(), error) {
	ln, err := net.Listen("tcp", *webhookAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen for webhooks: %w", err)
	}

	token := uuid.NewString()
	recvOpts := []client.PushReceiverOption{
		client.WithExpectedToken(token),
		client.WithReceiverLogger(logger),
	}
	if *verifyPush {
		recvOpts = append(recvOpts, client.WithTokenVerifier(
			auth.NewRemoteVerifier(agentBase+a2a.JWKSWellKnownPath, nil,
				auth.WithAudience("http://"+ln.Addr().String()+"/"),
				auth.WithVerifierLogger(logger),
			),
		))
	}
	receiver := client.NewPushReceiver(func(_ context.Context, task *a2a.Task) error {
		text := a2a.TextOf(task.Status)
		pushColor.Printf("\n[push] task %s is %s %s\n", task.ID, task.Status.State, text)
		return nil
	}, recvOpts...)

	srv := &http.Server{
		Handler:           receiver,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("webhook receiver stopped", slog.Any("error", err))
		}
	}()

	config := &a2a.PushNotificationConfig{
		URL:   "http://" + ln.Addr().String() + "/",
		Token: token,
	}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}
	return config, shutdown, nil
}
