package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"tinygo.org/x/drivers/internal/console"
	"tinygo.org/x/drivers/internal/rtc"
)

func runInteractive(s *rtc.Session, logger zerolog.Logger) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rtc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	con := console.New(s, rl.Stdout())
	fmt.Fprintln(rl.Stdout(), "type 'help' for commands, 'quit' to exit")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if !errors.Is(err, io.EOF) {
				logger.Error().Err(err).Msg("readline failed")
			}
			return nil
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}
		if err := con.Execute(input); err != nil {
			fmt.Fprintln(rl.Stderr(), "error:", err)
		}
	}
}
