// Package chatcmder provides the chat command for interactive chat through
// the parley relay.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/pkg/cliui"
	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/health"
	"github.com/parleyhq/parley/pkg/history"
	"github.com/parleyhq/parley/pkg/llm"
	"github.com/parleyhq/parley/pkg/logger"
	"github.com/parleyhq/parley/pkg/relayclient"
	"github.com/parleyhq/parley/pkg/suggest"
	"github.com/parleyhq/parley/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant>")
	errorBannerText = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type chatCommander struct {
	relayTarget string
	model       string
	configDir   string
	fresh       bool
	debug       bool

	logger      *slog.Logger
	client      *relayclient.Client
	store       history.Store
	prober      health.Prober
	suggestions []string
}

const chatLongDesc string = `Start an interactive chat session through the parley relay.

Messages are sent to the relay, which injects the system prompt and forwards
the conversation to the configured provider. When the assistant's reply
contains a "Follow-up suggestions" section, the suggestions are shown as
numbered chips; type /1 through /5 to send one as your next message.

Conversation history persists in the .parley/ directory between sessions.
Use --fresh to discard it and start a new conversation.

Examples:
  parley chat
  parley chat --model gpt-4o
  parley chat --relay-target http://localhost:9090 --fresh`

const chatShortDesc string = "Interactive chat through the parley relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("relay-target") {
				cmder.relayTarget = cfg.Client.RelayTarget
			}
			if !cmd.Flags().Changed("model") {
				cmder.model = cfg.Client.Model
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.relayTarget, "relay-target", "r", defaults.Client.RelayTarget, "Parley relay URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", defaults.Client.Model, "Model name")
	cmd.Flags().BoolVar(&cmder.fresh, "fresh", false, "Discard saved history and start a new conversation")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	c.client = relayclient.New(c.relayTarget)
	c.store = history.NewFileStore(c.configDir)
	c.prober = health.NewHTTPProber()

	conv, err := c.loadConversation()
	if err != nil {
		return err
	}

	fmt.Println()
	if err := cliui.Step(os.Stdout, "Checking relay at "+c.relayTarget, func() error {
		if !c.prober.Probe(context.Background(), c.relayTarget) {
			return fmt.Errorf("relay is not responding")
		}
		return nil
	}); err != nil {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("The relay appears to be down. Start it with: parley serve"))
	}

	if len(conv.Messages) > 0 {
		fmt.Printf("  %s Resuming conversation %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(conv.ID, 8)),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new starts over, /exit or Ctrl+D quits."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "/exit":
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Println()
			return nil

		case input == "/new":
			if err := c.store.Clear(); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}
			conv = history.NewConversation()
			c.suggestions = nil
			fmt.Printf("  %s Started a new conversation\n\n", cliui.SuccessMark)
			continue
		}

		if picked, ok := c.pickSuggestion(input); ok {
			input = picked
			fmt.Printf("  %s %s\n", cliui.DimStyle.Render("→"), input)
		}

		// Optimistic append: the turn stays in history even when the
		// relay call fails, so the user can regenerate.
		conv.Messages = append(conv.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: input,
		})

		reply, err := c.send(conv.Messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %s\n\n", cliui.FailMark, errorBannerText.Render(err.Error()))
			continue
		}

		conv.Messages = append(conv.Messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: reply.Content,
		})
		conv.Model = reply.Raw.Model

		c.render(reply.Content)

		if err := c.store.Save(conv); err != nil {
			c.logger.Warn("could not save history", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

func (c *chatCommander) loadConversation() (*history.Conversation, error) {
	if c.fresh {
		if err := c.store.Clear(); err != nil {
			return nil, fmt.Errorf("clearing history: %w", err)
		}
		return history.NewConversation(), nil
	}

	conv, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if conv == nil {
		conv = history.NewConversation()
	}
	return conv, nil
}

// send posts the conversation to the relay. The relay client abandons any
// previous still-pending request before sending.
func (c *chatCommander) send(messages []llm.Message) (*relayclient.Reply, error) {
	c.logger.Debug("sending chat request",
		"relay_target", c.relayTarget,
		"model", c.model,
		"message_count", len(messages),
	)

	return c.client.Send(context.Background(), relayclient.ChatParams{
		Messages: messages,
		Model:    c.model,
	})
}

// render prints the assistant reply as markdown and derives the quick-reply
// chips from it. Suggestions are recomputed fresh on every reply.
func (c *chatCommander) render(content string) {
	fmt.Printf("\n%s\n", assistantLabel)

	rendered, err := cliui.RenderMarkdown(content)
	if err != nil {
		rendered = content + "\n"
	}
	fmt.Print(rendered)

	c.suggestions = suggest.Extract(content)
	if chips := cliui.RenderChips(c.suggestions); chips != "" {
		fmt.Print(chips)
	}
	fmt.Println()
}

// pickSuggestion resolves /1../5 input to the corresponding chip, if any.
func (c *chatCommander) pickSuggestion(input string) (string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", false
	}
	n, err := strconv.Atoi(input[1:])
	if err != nil || n < 1 || n > len(c.suggestions) {
		return "", false
	}
	return c.suggestions[n-1], true
}
