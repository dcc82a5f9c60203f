package cli

import (
	"context"
	"fmt"
	"io"
)

// CreateMemberUsage is the help text for create-member.
const CreateMemberUsage = `
Usage: create-member [options] <name> [githubUsername] [avatarUrl]

Arguments:
  name           - Member name (required)
  githubUsername - GitHub username (optional)
  avatarUrl      - Avatar image URL (optional)

Examples:
  create-member "Alice"
  create-member "Bob" "bob"
  create-member "Charlie" "charlie" "https://avatars.githubusercontent.com/u/12345"
` + flagHelp

// RunCreateMember implements the create-member command and returns its exit code.
func RunCreateMember(ctx context.Context, env *Env, args []string, stdout, stderr io.Writer, opts ...ClientOption) int {
	client, rest, code, done := setup("create-member", env, args, stdout, stderr, CreateMemberUsage, opts)
	if done {
		return code
	}
	if len(rest) < 1 {
		_, _ = io.WriteString(stdout, CreateMemberUsage)
		return ExitOK
	}

	in := MemberInput{Name: rest[0]}
	if len(rest) > 1 {
		in.GitHubUsername = rest[1]
	}
	if len(rest) > 2 {
		in.AvatarURL = rest[2]
	}

	m, err := client.CreateMember(ctx, in)
	if err != nil {
		return failure(stderr, err)
	}

	fmt.Fprintln(stdout, "✅ Member created successfully!")
	fmt.Fprintf(stdout, "   Name: %s\n", m.Name)
	fmt.Fprintf(stdout, "   ID: %d\n", m.ID)
	fmt.Fprintf(stdout, "   Reputation: %d points\n", m.Reputation)
	if m.GitHubUsername != nil && *m.GitHubUsername != "" {
		fmt.Fprintf(stdout, "   GitHub: @%s\n", *m.GitHubUsername)
	}
	return ExitOK
}
