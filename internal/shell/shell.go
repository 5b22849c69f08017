// Package shell is a line-oriented terminal front end over the forum services.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/stackit-qa/apiserver/internal/app"
	"github.com/stackit-qa/apiserver/internal/services"
	"github.com/stackit-qa/apiserver/types"
	"go.uber.org/zap"
)

const (
	prompt      = "stackit> "
	shortIDSize = 8
)

var errQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	run   func(s *Shell, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"register":      {"register <username> <email> [password]", "create an account and sign in", (*Shell).register},
		"login":         {"login <email> [password]", "sign in", (*Shell).login},
		"logout":        {"logout", "sign out", (*Shell).logout},
		"whoami":        {"whoami", "show the signed-in user", (*Shell).whoami},
		"ask":           {`ask "<title>" "<description>" <tag,tag,...>`, "post a question", (*Shell).ask},
		"questions":     {"questions [tag]", "list questions newest first", (*Shell).questions},
		"show":          {"show <question>", "show a question with its answers", (*Shell).show},
		"answer":        {`answer <question> "<content>"`, "answer a question", (*Shell).answer},
		"vote":          {"vote <q|a> <id> <up|down>", "vote on a question or answer", (*Shell).vote},
		"accept":        {"accept <question> <answer>", "accept an answer to your question", (*Shell).accept},
		"notifications": {"notifications", "list your notifications", (*Shell).notifications},
		"read":          {"read <notification>", "mark a notification as read", (*Shell).read},
		"read-all":      {"read-all", "mark every notification as read", (*Shell).readAll},
		"tags":          {"tags", "list tags by popularity", (*Shell).tags},
		"bot":           {"bot [message]", "ask the help bot", (*Shell).bot},
		"doctor":        {"doctor", "check forum consistency", (*Shell).doctor},
		"help":          {"help", "list commands", (*Shell).help},
		"quit":          {"quit", "leave the shell", (*Shell).quit},
	}
}

// Shell reads commands from in and writes results to out. Identifiers may be
// abbreviated to any unique prefix.
type Shell struct {
	app    *app.App
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.Logger
}

func New(a *app.App, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		app:    a,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: a.Logger.Named("shell"),
	}
}

// Run processes commands until quit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	if user := s.app.Identity.Current(); user != nil {
		s.printf("Welcome back, %s.\n", user.Username)
	}
	s.printf("Type 'help' for commands.\n")

	for {
		s.printf("%s", prompt)
		if !s.in.Scan() {
			s.printf("\n")
			return s.in.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Exec(ctx, s.in.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.printf("error: %s\n", describe(err))
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", fields[0])
	}
	s.logger.Debug("command", zap.String("name", name))
	return cmd.run(s, ctx, fields[1:])
}

func (s *Shell) register(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("register")
	}
	s.printf("Creating account...\n")
	user, err := s.app.Identity.Register(ctx, args[0], args[1], optionalArg(args, 2))
	if err != nil {
		return err
	}
	s.printf("Welcome, %s!\n", user.Username)
	return nil
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("login")
	}
	s.printf("Signing in...\n")
	user, err := s.app.Identity.Login(ctx, args[0], optionalArg(args, 1))
	if err != nil {
		return err
	}
	s.printf("Signed in as %s.\n", user.Username)
	return nil
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	user := s.app.Identity.Current()
	if user == nil {
		s.printf("Not signed in.\n")
		return nil
	}
	if err := s.app.Identity.Logout(ctx); err != nil {
		return err
	}
	s.app.Notifications.Clear(ctx, user.ID)
	s.printf("Signed out.\n")
	return nil
}

func (s *Shell) whoami(_ context.Context, _ []string) error {
	user := s.app.Identity.Current()
	if user == nil {
		s.printf("guest\n")
		return nil
	}
	s.printf("%s <%s> (%s)\n", user.Username, user.Email, user.Role)
	return nil
}

func (s *Shell) ask(ctx context.Context, args []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return usageError("ask")
	}

	tags, err := parseTags(args[2])
	if err != nil {
		return err
	}
	title := strings.TrimSpace(args[0])
	description := strings.TrimSpace(args[1])
	if title == "" || description == "" {
		return errors.New("title and description are required")
	}

	question, err := s.app.Forum.CreateQuestion(ctx, title, description, tags, user)
	if err != nil {
		return err
	}
	s.printf("Posted question %s.\n", shortID(question.ID))
	return nil
}

func (s *Shell) questions(ctx context.Context, args []string) error {
	filter := services.QuestionFilter{Tag: optionalArg(args, 0)}
	questions := s.app.Forum.Questions(ctx, filter)
	if len(questions) == 0 {
		s.printf("No questions yet.\n")
		return nil
	}
	for _, q := range questions {
		status := ""
		if q.Solved() {
			status = " [solved]"
		}
		s.printf("%s  %+d votes  %d answers  %s%s\n", shortID(q.ID), q.Votes, q.AnswerCount, q.Title, status)
		s.printf("          by %s, %s  [%s]\n", q.Author.Username, since(q.CreatedAt), strings.Join(q.Tags, ", "))
	}
	return nil
}

func (s *Shell) show(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("show")
	}
	question, err := s.resolveQuestion(ctx, args[0])
	if err != nil {
		return err
	}
	answers, err := s.app.Forum.Answers(ctx, question.ID)
	if err != nil {
		return err
	}
	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].IsAccepted && !answers[j].IsAccepted
	})

	s.printf("%s\n", question.Title)
	s.printf("%+d votes  asked by %s %s  [%s]\n\n", question.Votes, question.Author.Username, since(question.CreatedAt), strings.Join(question.Tags, ", "))
	s.printf("%s\n\n", s.app.Sanitizer.Text(question.Description))
	s.printf("%d answers\n", len(answers))
	for _, a := range answers {
		marker := ""
		if a.IsAccepted {
			marker = "  ✓ accepted"
		}
		s.printf("---\n%s  %+d votes  by %s %s%s\n", shortID(a.ID), a.Votes, a.Author.Username, since(a.CreatedAt), marker)
		s.printf("%s\n", s.app.Sanitizer.Text(a.Content))
	}
	return nil
}

func (s *Shell) answer(ctx context.Context, args []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usageError("answer")
	}
	question, err := s.resolveQuestion(ctx, args[0])
	if err != nil {
		return err
	}
	content := strings.TrimSpace(strings.Join(args[1:], " "))
	if content == "" {
		return errors.New("answer content is required")
	}

	answer, err := s.app.Forum.CreateAnswer(ctx, question.ID, content, user)
	if err != nil {
		return err
	}
	s.printf("Posted answer %s.\n", shortID(answer.ID))
	return nil
}

func (s *Shell) vote(ctx context.Context, args []string) error {
	if _, err := s.requireUser(); err != nil {
		return err
	}
	if len(args) < 3 {
		return usageError("vote")
	}

	direction := types.VoteDirection(strings.ToLower(args[2]))
	var (
		target types.VoteTarget
		id     string
	)
	switch strings.ToLower(args[0]) {
	case "q", "question":
		target = types.VoteTargetQuestion
		question, err := s.resolveQuestion(ctx, args[1])
		if err != nil {
			return err
		}
		id = question.ID
	case "a", "answer":
		target = types.VoteTargetAnswer
		answer, err := s.resolveAnswer(ctx, "", args[1])
		if err != nil {
			return err
		}
		id = answer.ID
	default:
		return usageError("vote")
	}

	votes, err := s.app.Forum.CastVote(ctx, id, target, direction)
	if err != nil {
		return err
	}
	s.printf("%s %s now has %+d votes.\n", target, shortID(id), votes)
	return nil
}

func (s *Shell) accept(ctx context.Context, args []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usageError("accept")
	}
	question, err := s.resolveQuestion(ctx, args[0])
	if err != nil {
		return err
	}
	if question.AuthorID != user.ID {
		return errors.New("only the question owner can accept an answer")
	}
	answer, err := s.resolveAnswer(ctx, question.ID, args[1])
	if err != nil {
		return err
	}

	if _, err := s.app.Forum.AcceptAnswer(ctx, question.ID, answer.ID, user); err != nil {
		return err
	}
	s.printf("Accepted answer %s. Question marked as solved.\n", shortID(answer.ID))
	return nil
}

func (s *Shell) notifications(ctx context.Context, _ []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	items := s.app.Notifications.List(ctx, user.ID)
	s.printf("%d unread\n", s.app.Notifications.UnreadCount(ctx, user.ID))
	for _, n := range items {
		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		s.printf("%s %s  %s  (%s)\n", marker, shortID(n.ID), n.Message, since(n.CreatedAt))
	}
	return nil
}

func (s *Shell) read(ctx context.Context, args []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return usageError("read")
	}
	ids := make([]string, 0)
	for _, n := range s.app.Notifications.List(ctx, user.ID) {
		ids = append(ids, n.ID)
	}
	id, err := matchPrefix(ids, args[0])
	if err != nil {
		return err
	}
	s.app.Notifications.MarkRead(ctx, id)
	return nil
}

func (s *Shell) readAll(ctx context.Context, _ []string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	s.app.Notifications.MarkAllRead(ctx, user.ID)
	return nil
}

func (s *Shell) tags(ctx context.Context, _ []string) error {
	for _, tag := range s.app.Forum.Tags(ctx) {
		s.printf("%-20s %d\n", tag.Name, tag.Count)
	}
	return nil
}

func (s *Shell) bot(ctx context.Context, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		s.printf("%s\n", s.app.Help.Greeting())
		return nil
	}
	s.printf("StackBot is typing...\n")
	reply, err := s.app.Help.Reply(ctx, message)
	if err != nil {
		return err
	}
	s.printf("%s\n", reply)
	return nil
}

func (s *Shell) doctor(ctx context.Context, _ []string) error {
	if err := s.app.Forum.CheckInvariants(ctx); err != nil {
		return err
	}
	s.printf("ok\n")
	return nil
}

func (s *Shell) help(_ context.Context, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.printf("  %-45s %s\n", commands[name].usage, commands[name].help)
	}
	return nil
}

func (s *Shell) quit(_ context.Context, _ []string) error {
	return errQuit
}

func (s *Shell) requireUser() (*types.User, error) {
	user := s.app.Identity.Current()
	if user == nil {
		return nil, services.ErrUnauthenticated
	}
	return user, nil
}

func (s *Shell) resolveQuestion(ctx context.Context, ref string) (types.Question, error) {
	questions := s.app.Forum.Questions(ctx, services.QuestionFilter{})
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	id, err := matchPrefix(ids, ref)
	if err != nil {
		return types.Question{}, err
	}
	return s.app.Forum.Question(ctx, id)
}

// resolveAnswer looks ref up among the answers of questionID, or among every
// answer when questionID is empty.
func (s *Shell) resolveAnswer(ctx context.Context, questionID, ref string) (types.Answer, error) {
	byID := make(map[string]types.Answer)
	for qid, answers := range s.app.Forum.AnswersByQuestion(ctx) {
		if questionID != "" && qid != questionID {
			continue
		}
		for _, a := range answers {
			byID[a.ID] = a
		}
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	id, err := matchPrefix(ids, ref)
	if err != nil {
		return types.Answer{}, err
	}
	return byID[id], nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func usageError(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

func describe(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return "please sign in first"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	case errors.Is(err, services.ErrAlreadyAccepted):
		return "an answer has already been accepted"
	case errors.Is(err, services.ErrInvalidVote):
		return "vote must be up or down"
	case errors.Is(err, services.ErrMissingFields):
		return "please fill in all fields"
	default:
		return err.Error()
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func shortID(id string) string {
	if len(id) > shortIDSize {
		return id[:shortIDSize]
	}
	return id
}

func since(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
