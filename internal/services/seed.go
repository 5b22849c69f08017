package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stackit-qa/apiserver/types"
)

type seedAnswer struct {
	author  int
	content string
	votes   int
	accept  bool
}

type seedQuestion struct {
	author      int
	title       string
	description string
	tags        []string
	votes       int
	answers     []seedAnswer
}

var demoUsers = []types.User{
	{Username: "AyushiSoni", Email: "ayushi@example.com"},
	{Username: "DhrumilSoni", Email: "john@example.com"},
	{Username: "sarahlee", Email: "sara@example.com"},
}

// Listed oldest first so the newest question ends up at the top.
var demoQuestions = []seedQuestion{
	{
		author:      2,
		title:       "Best practices for Node.js error handling",
		description: "<p>What are the recommended patterns for error handling in Node.js applications? Should I use try-catch blocks everywhere or are there better approaches?</p><ul><li>How to handle async errors?</li><li>When to use error-first callbacks vs promises?</li><li>Best practices for logging errors?</li></ul>",
		tags:        []string{"Node.js", "JavaScript", "Error Handling"},
		votes:       12,
		answers: []seedAnswer{
			{author: 0, votes: 5, content: "<p>For Node.js error handling, I recommend a layered approach:</p><ol><li><strong>Use try-catch for async/await</strong></li><li><strong>Implement global error handlers</strong></li><li><strong>Use proper logging libraries</strong></li></ol>"},
		},
	},
	{
		author:      1,
		title:       "TypeScript generic constraints explained",
		description: "<p>Can someone explain how generic constraints work in TypeScript? I'm having trouble understanding when and how to use <code>extends</code> keyword with generics.</p>",
		tags:        []string{"TypeScript", "Generics"},
		votes:       8,
		answers: []seedAnswer{
			{author: 0, votes: 15, accept: true, content: "<p>Generic constraints allow you to limit the types that can be used with a generic. The <code>extends</code> keyword creates a constraint.</p>"},
		},
	},
	{
		author:      0,
		title:       "How to use React hooks effectively?",
		description: "<p>I'm new to React hooks and wondering about best practices. When should I use <strong>useState</strong> vs <strong>useReducer</strong>? Any tips for avoiding common pitfalls?</p>",
		tags:        []string{"React", "JavaScript", "Hooks"},
		votes:       15,
		answers: []seedAnswer{
			{author: 1, votes: 10, content: "<p><strong>useState</strong> is perfect for simple state management, while <strong>useReducer</strong> shines when you have complex state logic or multiple sub-values.</p>"},
			{author: 2, votes: 7, content: "<p>I'd also add that <strong>useCallback</strong> and <strong>useMemo</strong> are crucial for performance optimization.</p>"},
		},
	},
}

// SeedDemo loads the sample users, questions and answers through the
// regular forum operations.
func SeedDemo(ctx context.Context, forum *ForumService, identity *IdentityService) error {
	users := make([]types.User, len(demoUsers))
	for i, u := range demoUsers {
		u.ID = userIDForEmail(u.Email)
		u.Role = types.RoleUser
		u.CreatedAt = time.Now()
		u.Avatar = avatarFor(u.ID)
		identity.Remember(u)
		users[i] = u
	}

	for _, sq := range demoQuestions {
		author := users[sq.author]
		question, err := forum.CreateQuestion(ctx, sq.title, sq.description, sq.tags, &author)
		if err != nil {
			return fmt.Errorf("seed question %q: %w", sq.title, err)
		}
		if err := seedVotes(ctx, forum, question.ID, types.VoteTargetQuestion, sq.votes); err != nil {
			return err
		}

		for _, sa := range sq.answers {
			answerAuthor := users[sa.author]
			answer, err := forum.CreateAnswer(ctx, question.ID, sa.content, &answerAuthor)
			if err != nil {
				return fmt.Errorf("seed answer on %q: %w", sq.title, err)
			}
			if err := seedVotes(ctx, forum, answer.ID, types.VoteTargetAnswer, sa.votes); err != nil {
				return err
			}
			if sa.accept {
				if _, err := forum.AcceptAnswer(ctx, question.ID, answer.ID, &author); err != nil {
					return fmt.Errorf("seed accept on %q: %w", sq.title, err)
				}
			}
		}
	}
	return nil
}

func seedVotes(ctx context.Context, forum *ForumService, id string, target types.VoteTarget, votes int) error {
	for i := 0; i < votes; i++ {
		if _, err := forum.CastVote(ctx, id, target, types.VoteUp); err != nil {
			return fmt.Errorf("seed votes on %s %q: %w", target, id, err)
		}
	}
	return nil
}
