package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/tapearn/internal/factory"
	"github.com/mcoot/tapearn/internal/model"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "One-off tasks rewarded once",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskVisitCmd())
	cmd.AddCommand(newTaskClaimCmd())

	return cmd
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks and their progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			econ, err := cfg.Economy()
			if err != nil {
				return err
			}
			sess, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			state, err := sess.State()
			if err != nil {
				return err
			}
			local := sess.Local()

			tasks := make(TaskList, 0, len(econ.Tasks))
			for _, t := range econ.Tasks {
				tasks = append(tasks, TaskView{
					ID:      t.ID,
					Action:  t.Action,
					URL:     t.URL,
					Reward:  t.Reward,
					Visited: local.HasVisited(t.ID),
					Claimed: state.HasClaimedTask(t.ID),
				})
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(tasks)
			return nil
		},
	}
}

func newTaskVisitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visit TASK",
		Short: "Mark a task's link as opened",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.TaskID(args[0])
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				if err := sess.VisitTask(ctx, id); err != nil {
					return "", err
				}
				return fmt.Sprintf("Visited %s, claim it with 'tapearn task claim %s'", id, id), nil
			})
		},
	}
}

func newTaskClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim TASK",
		Short: "Claim the reward of a visited task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.TaskID(args[0])
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				if _, err := sess.ClaimTask(ctx, id); err != nil {
					return "", err
				}
				return fmt.Sprintf("Claimed %s", id), nil
			})
		},
	}
}
