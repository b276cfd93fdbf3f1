// Command sessionctl is an interactive shell over the session client. The
// session lives only as long as the process: it is never written to disk.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/Krish-Depani/auth-session-client/client"
	"github.com/Krish-Depani/auth-session-client/config"
	"github.com/Krish-Depani/auth-session-client/logger"
	"github.com/Krish-Depani/auth-session-client/models"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal("Error loading .env:", err)
	}
	logr := logger.New(env.LogLevel, env.LogFormat)

	c, err := client.New(client.ConfigFromEnv(env), client.WithLogger(logr))
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.Store().Subscribe(func(s models.Session) {
		fmt.Fprintf(os.Stderr, "[session %s]\n", s.Status)
	})

	go func() {
		if err := c.Scheduler().Run(ctx); err != nil && ctx.Err() == nil {
			logr.Error("renewal scheduler stopped", "error", err)
		}
	}()

	if err := c.Bootstrap(ctx); err != nil {
		logr.Debug("no session restored", "error", err)
	}

	in := bufio.NewScanner(os.Stdin)
	sh := &shell{
		client:   c,
		out:      os.Stdout,
		password: passwordReader(in),
	}
	sh.run(ctx, in)
}

// passwordReader prompts without echo on a terminal and falls back to the
// next input line when stdin is piped.
func passwordReader(in *bufio.Scanner) func(string) (string, error) {
	fd := int(os.Stdin.Fd())
	return func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		if !term.IsTerminal(fd) {
			if !in.Scan() {
				return "", io.ErrUnexpectedEOF
			}
			return in.Text(), nil
		}
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
}
