package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// HelpRule maps a group of keywords to a canned response.
type HelpRule struct {
	Name     string
	Keywords []string
	Response string
}

const helpGreeting = "Hi! I'm StackBot, your guide to StackIt!\n\n" +
	"I can help you with:\n" +
	"• How to ask questions\n" +
	"• Using the rich text editor\n" +
	"• Understanding voting and answers\n" +
	"• Platform features and navigation\n\n" +
	"What would you like to know?"

const helpFallback = "I'm here to help! You can ask me about:\n\n" +
	"• How to ask questions\n" +
	"• Using the rich text editor\n" +
	"• Voting and accepting answers\n" +
	"• Tags and notifications\n" +
	"• Account features\n\n" +
	"What specific topic would you like help with?"

// DefaultHelpRules is the ordered rule set of the help widget. Order matters:
// the first matching group wins.
var DefaultHelpRules = []HelpRule{
	{
		Name:     "question",
		Keywords: []string{"question", "ask"},
		Response: "To ask a question:\n\n" +
			"1. Click 'Ask Question'\n" +
			"2. Write a clear, specific title\n" +
			"3. Use the rich text editor for a detailed description\n" +
			"4. Add relevant tags (up to 5)\n" +
			"5. Click 'Post Question'\n\n" +
			"Tips:\n• Be specific and descriptive\n• Include code examples if relevant\n• Use proper tags for better visibility",
	},
	{
		Name:     "editor",
		Keywords: []string{"editor", "format", "rich text"},
		Response: "The rich text editor supports:\n\n" +
			"• Bold, italic and strikethrough\n" +
			"• Numbered and bullet lists\n" +
			"• Emoji, hyperlinks and images\n" +
			"• Text alignment (left, center, right)\n\n" +
			"Use the toolbar buttons or keyboard shortcuts!",
	},
	{
		Name:     "vote",
		Keywords: []string{"vote", "upvote", "downvote"},
		Response: "Voting helps highlight quality content:\n\n" +
			"• Upvote good questions and answers\n" +
			"• Downvote poor quality content\n" +
			"• Only logged-in users can vote\n\n" +
			"Votes help the community identify the best answers!",
	},
	{
		Name:     "answer",
		Keywords: []string{"answer", "respond"},
		Response: "To answer questions:\n\n" +
			"1. Open any question to view details\n" +
			"2. Scroll to the bottom\n" +
			"3. Write your answer in the editor\n" +
			"4. Click 'Post Answer'\n\n" +
			"Tips:\n• Provide clear, helpful explanations\n• Include code examples when relevant\n• Be respectful and constructive",
	},
	{
		Name:     "accept",
		Keywords: []string{"accept", "solved"},
		Response: "About accepted answers:\n\n" +
			"• Only question owners can accept answers\n" +
			"• Click the checkmark next to the best answer\n" +
			"• Accepted answers appear at the top\n" +
			"• This marks the question as 'Solved'\n" +
			"• It helps others find the best solution quickly",
	},
	{
		Name:     "tag",
		Keywords: []string{"tag", "category"},
		Response: "Tags help organize questions:\n\n" +
			"• Add up to 5 relevant tags per question\n" +
			"• Use existing popular tags when possible\n" +
			"• Tags like 'React', 'JavaScript', 'CSS' are common\n" +
			"• Good tags improve question discoverability",
	},
	{
		Name:     "notification",
		Keywords: []string{"notification", "bell"},
		Response: "Notifications keep you updated. You'll be notified when:\n\n" +
			"• Someone answers your question\n" +
			"• Someone comments on your answer\n" +
			"• Someone mentions you with @username\n" +
			"• Your answer gets accepted",
	},
	{
		Name:     "account",
		Keywords: []string{"account", "profile", "sign"},
		Response: "Account features:\n\n" +
			"• Sign up to ask questions and post answers\n" +
			"• Vote on content to help the community\n" +
			"• Get notifications for interactions\n\n" +
			"Sign in to get started!",
	},
	{
		Name:     "help",
		Keywords: []string{"help", "how", "what"},
		Response: "I can help you with:\n\n" +
			"• Asking questions\n" +
			"• Using the rich text editor\n" +
			"• Voting and answers\n" +
			"• Adding tags\n" +
			"• Notifications\n" +
			"• Account features\n\n" +
			"Just ask me about any of these topics!",
	},
}

type compiledHelpRule struct {
	name     string
	program  *vm.Program
	response string
}

// HelpBot answers free-text questions about the forum from a fixed rule set.
// It holds no conversation state.
type HelpBot struct {
	rules       []compiledHelpRule
	fallback    string
	typingDelay time.Duration
}

// NewHelpBot compiles rules into match programs. Rules without keywords are
// rejected.
func NewHelpBot(rules []HelpRule, typingDelay time.Duration) (*HelpBot, error) {
	compiled := make([]compiledHelpRule, 0, len(rules))
	for _, rule := range rules {
		code, err := ruleExpression(rule.Keywords)
		if err != nil {
			return nil, fmt.Errorf("help rule %q: %w", rule.Name, err)
		}
		program, err := expr.Compile(code, expr.Env(map[string]any{"message": ""}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile help rule %q: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledHelpRule{
			name:     rule.Name,
			program:  program,
			response: rule.Response,
		})
	}
	return &HelpBot{
		rules:       compiled,
		fallback:    helpFallback,
		typingDelay: typingDelay,
	}, nil
}

func ruleExpression(keywords []string) (string, error) {
	clauses := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		clauses = append(clauses, "message contains "+strconv.Quote(keyword))
	}
	if len(clauses) == 0 {
		return "", fmt.Errorf("no keywords")
	}
	return strings.Join(clauses, " || "), nil
}

// Greeting is the message shown when the widget opens.
func (b *HelpBot) Greeting() string {
	return helpGreeting
}

// Respond returns the response of the first rule matching text.
func (b *HelpBot) Respond(text string) string {
	_, response := b.match(text)
	return response
}

// Match returns the name of the matching rule, or "" for the fallback.
func (b *HelpBot) Match(text string) string {
	name, _ := b.match(text)
	return name
}

func (b *HelpBot) match(text string) (string, string) {
	env := map[string]any{"message": strings.ToLower(text)}
	for _, rule := range b.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return rule.name, rule.response
		}
	}
	return "", b.fallback
}

// Reply responds to text after the simulated typing delay.
func (b *HelpBot) Reply(ctx context.Context, text string) (string, error) {
	if b.typingDelay > 0 {
		timer := time.NewTimer(b.typingDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return b.Respond(text), nil
}
