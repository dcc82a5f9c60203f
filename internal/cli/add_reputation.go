package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/reputation/internal/domain/model"
)

// AddReputationUsage returns the help text for add-reputation.
func AddReputationUsage() string {
	var b strings.Builder
	b.WriteString(`
Usage: add-reputation [options] <name> <points> <reason> <category>

Arguments:
  name      - Member name (will be created if it doesn't exist)
  points    - Number of points to add (can be negative)
  reason    - Explanation for the points
  category  - One of the categories below

Examples:
  add-reputation "Alice" 50 "Fixed critical bug" "Project Contributions"
  add-reputation "Bob" -10 "Spam violation" "Penalty"
  add-reputation -url http://localhost:8080 "Charlie" 100 "Won hackathon" "Achievements"

Categories:
`)
	for _, c := range model.Categories() {
		b.WriteString("  - " + c)
		if c == model.CategoryPenalty {
			b.WriteString(" (for deductions)")
		}
		b.WriteString("\n")
	}
	b.WriteString(flagHelp)
	return b.String()
}

// RunAddReputation implements the add-reputation command and returns its exit code.
func RunAddReputation(ctx context.Context, env *Env, args []string, stdout, stderr io.Writer, opts ...ClientOption) int {
	usage := AddReputationUsage()
	client, rest, code, done := setup("add-reputation", env, args, stdout, stderr, usage, opts)
	if done {
		return code
	}
	if len(rest) < 4 {
		_, _ = io.WriteString(stdout, usage)
		return ExitOK
	}

	name, reason, category := rest[0], rest[2], rest[3]
	points, err := strconv.Atoi(strings.TrimSpace(rest[1]))
	if err != nil {
		fmt.Fprintln(stderr, "Error: Points must be a valid number")
		return ExitFailure
	}

	res, err := client.AddReputation(ctx, AwardInput{
		Name:     name,
		Points:   points,
		Reason:   reason,
		Category: category,
	})
	if err != nil {
		return failure(stderr, err)
	}
	if !res.Success {
		fmt.Fprintln(stderr, "Error:", res.Message)
		return ExitFailure
	}

	verb, sign := "deducted", ""
	if points > 0 {
		verb, sign = "added", "+"
	}
	fmt.Fprintln(stdout, "✅ Success!")
	fmt.Fprintf(stdout, "   Member: %s\n", name)
	fmt.Fprintf(stdout, "   Points %s: %s%d\n", verb, sign, points)
	fmt.Fprintf(stdout, "   New total: %d points\n", res.NewReputation)
	fmt.Fprintf(stdout, "   Reason: %s\n", reason)
	fmt.Fprintf(stdout, "   Category: %s\n", category)
	return ExitOK
}
