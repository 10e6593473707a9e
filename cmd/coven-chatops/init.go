// ABOUTME: Interactive setup that writes a TOML config for coven-chatops
// ABOUTME: Prompts for the AI provider and the chat networks to enable

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"

	"github.com/2389/coven-chatops/internal/config"
)

// initAnswers are the values gathered by runInit.
type initAnswers struct {
	APIKey string

	MatrixHomeserver  string
	MatrixUsername    string
	MatrixPassword    string
	MatrixRecoveryKey string

	DiscordToken string

	Prefix string
}

func runInit(configPath string) error {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(configPath); err == nil {
		yellow.Printf("    Config already exists at %s\n", configPath)
		if strings.ToLower(ask(reader, os.Stdout, "Overwrite? [y/N]", "")) != "y" {
			fmt.Println("    Aborted.")
			return nil
		}
		fmt.Println()
	}

	a := initAnswers{
		APIKey: ask(reader, os.Stdout, "Anthropic API key (or ${ANTHROPIC_API_KEY})", "${ANTHROPIC_API_KEY}"),
		Prefix: ask(reader, os.Stdout, "Command prefix", config.DefaultCommandPrefix),
	}
	if strings.ToLower(ask(reader, os.Stdout, "Connect to Matrix? [Y/n]", "y")) == "y" {
		a.MatrixHomeserver = ask(reader, os.Stdout, "Matrix homeserver URL", "https://matrix.org")
		a.MatrixUsername = ask(reader, os.Stdout, "Matrix username", "")
		a.MatrixPassword = ask(reader, os.Stdout, "Matrix password", "")
		a.MatrixRecoveryKey = ask(reader, os.Stdout, "Matrix recovery key (optional, for E2EE)", "")
	}
	if strings.ToLower(ask(reader, os.Stdout, "Connect to Discord? [y/N]", "n")) == "y" {
		a.DiscordToken = ask(reader, os.Stdout, "Discord bot token", "")
	}

	data, err := renderConfig(a)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	green.Printf("    ✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("    Next steps:")
	fmt.Println("    1. Invite the bot to a room or server")
	fmt.Println("    2. Run: coven-chatops")
	fmt.Println()
	return nil
}

// ask prints a prompt and returns the trimmed answer, or def when empty.
func ask(r *bufio.Reader, w io.Writer, prompt, def string) string {
	green := color.New(color.FgGreen)
	green.Fprint(w, "    ▶ ")
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w, "%s: ", prompt)
	}

	answer, _ := r.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}

// renderConfig encodes the answers as a commented TOML file.
func renderConfig(a initAnswers) ([]byte, error) {
	typing := true
	cfg := config.Config{
		Bot: config.BotConfig{
			CommandPrefix:   a.Prefix,
			HistoryWindow:   config.DefaultHistoryWindow,
			SpamThreshold:   config.DefaultSpamThreshold,
			TypingIndicator: &typing,
		},
		AI: config.AIConfig{
			Provider:     config.DefaultProvider,
			APIKey:       a.APIKey,
			Model:        config.DefaultModel,
			MaxTokens:    config.DefaultMaxTokens,
			SystemPrompt: "You are a helpful assistant in a group chat.",
			TimeoutRaw:   "60s",
		},
		Matrix: config.MatrixConfig{
			Enabled:         a.MatrixHomeserver != "",
			Homeserver:      a.MatrixHomeserver,
			Username:        a.MatrixUsername,
			Password:        a.MatrixPassword,
			RecoveryKey:     a.MatrixRecoveryKey,
			AllowedRooms:    []string{},
			AdminPowerLevel: config.DefaultAdminPowerLevel,
		},
		Discord: config.DiscordConfig{
			Enabled:         a.DiscordToken != "",
			Token:           a.DiscordToken,
			AllowedChannels: []string{},
		},
		Audit:   config.AuditConfig{Enabled: true},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}

	var buf bytes.Buffer
	buf.WriteString("# coven-chatops configuration\n# Generated by coven-chatops init\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
